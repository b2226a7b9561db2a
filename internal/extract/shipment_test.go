package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShipmentFields(t *testing.T) {
	text := "BILL OF LADING\r\n" +
		"Shipment No.: SH-20931\r\n" +
		"Shipper: Acme Corp\r\n" +
		"Consignee Name - Globex Ltd\r\n" +
		"Pickup Date: 2024-05-02 08:00\r\n" +
		"Delivery: 2024-05-04\r\n" +
		"Trailer Type: Reefer 53ft\r\n" +
		"Service Level: Expedited\r\n" +
		"Total Weight: 18,000 lbs\r\n" +
		"Carrier Name: Initech Freight\r\n" +
		"Freight Rate: EUR 1.250,50 all in\r\n"

	s := ShipmentFields(text)

	require.NotNil(t, s.ShipmentID)
	assert.Equal(t, "SH-20931", *s.ShipmentID)
	assert.Equal(t, "Acme Corp", *s.Shipper)
	assert.Equal(t, "Globex Ltd", *s.Consignee)
	assert.Equal(t, "2024-05-02 08:00", *s.PickupDateTime)
	assert.Equal(t, "2024-05-04", *s.DeliveryDateTime)
	assert.Equal(t, "Reefer 53ft", *s.EquipmentType)
	assert.Equal(t, "Expedited", *s.Mode)
	assert.Equal(t, "18,000 lbs", *s.Weight)
	assert.Equal(t, "Initech Freight", *s.CarrierName)
	assert.Equal(t, "1.250", *s.Rate)
	assert.Equal(t, "EUR", *s.Currency)
}

func TestShipmentFields_MissingFieldsAreNil(t *testing.T) {
	s := ShipmentFields("Annual leave is twenty days.")

	assert.Nil(t, s.ShipmentID)
	assert.Nil(t, s.Shipper)
	assert.Nil(t, s.Rate)
	assert.Nil(t, s.Currency)
}

func TestShipmentFields_ReferenceFallsBackForShipmentID(t *testing.T) {
	s := ShipmentFields("reference # PO-77")

	require.NotNil(t, s.ShipmentID)
	assert.Equal(t, "PO-77", *s.ShipmentID)
}

func TestShipmentFields_RateCurrency(t *testing.T) {
	tests := []struct {
		name         string
		line         string
		wantRate     string
		wantCurrency *string
	}{
		{name: "code", line: "Rate: 900 CAD flat", wantRate: "900", wantCurrency: strPtr("CAD")},
		{name: "dollar sign", line: "Rate: $1200.00", wantRate: "1200.00", wantCurrency: strPtr("USD")},
		{name: "euro word", line: "rate - 300 euros", wantRate: "300", wantCurrency: strPtr("EUR")},
		{name: "no amount", line: "Rate: negotiable", wantRate: "negotiable", wantCurrency: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := ShipmentFields(tt.line)
			require.NotNil(t, s.Rate)
			assert.Equal(t, tt.wantRate, *s.Rate)
			assert.Equal(t, tt.wantCurrency, s.Currency)
		})
	}
}
