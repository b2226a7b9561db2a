package domain

// KeyValue is one "key: value" line found in a document.
type KeyValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Shipment holds freight fields found in a document. Fields that were not
// found are nil and encode as JSON null.
type Shipment struct {
	ShipmentID       *string `json:"shipment_id"`
	Shipper          *string `json:"shipper"`
	Consignee        *string `json:"consignee"`
	PickupDateTime   *string `json:"pickup_datetime"`
	DeliveryDateTime *string `json:"delivery_datetime"`
	EquipmentType    *string `json:"equipment_type"`
	Mode             *string `json:"mode"`
	Rate             *string `json:"rate"`
	Currency         *string `json:"currency"`
	Weight           *string `json:"weight"`
	CarrierName      *string `json:"carrier_name"`
}

// ExtractRequest selects the text to extract from: Text when set, else the
// named document, else the most recently modified document when UseLatest
// is true.
type ExtractRequest struct {
	Text      string
	Source    string
	UseLatest bool
}

// Extraction is the structured view of one text.
type Extraction struct {
	Source      string     `json:"source,omitempty"`
	TextPreview string     `json:"text_preview"`
	KeyValues   []KeyValue `json:"key_values"`
	Shipment    Shipment   `json:"shipment"`
}
