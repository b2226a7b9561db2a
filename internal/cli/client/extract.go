package client

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// ExtractRequest is the body of POST /extract.
type ExtractRequest struct {
	Text      string `json:"text,omitempty"`
	Source    string `json:"source,omitempty"`
	UseLatest bool   `json:"use_latest"`
}

type KeyValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Shipment mirrors the server's shipment fields; missing fields are nil.
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

type ExtractResponse struct {
	Source      string     `json:"source,omitempty"`
	TextPreview string     `json:"text_preview"`
	KeyValues   []KeyValue `json:"key_values"`
	Shipment    Shipment   `json:"shipment"`
}

// ExtractCmd creates the extract command.
func ExtractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract [document]",
		Short: "Extract key/value pairs and shipment fields",
		Long: `Extract key/value pairs, a text preview and shipment fields.

With no argument the server's most recently added document is used.
Use --text or --file to extract from text instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			req := ExtractRequest{UseLatest: true}
			req.Text, _ = cmd.Flags().GetString("text")
			if file, _ := cmd.Flags().GetString("file"); file != "" {
				data, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", file, err)
				}
				req.Text = string(data)
			}
			if len(args) == 1 {
				req.Source = args[0]
				req.UseLatest = false
			}

			outputJSON, _ := cmd.Flags().GetBool("output")
			return runExtract(cmd.OutOrStdout(), api, req, outputJSON)
		},
	}

	cmd.Flags().String("text", "", "Text to extract from")
	cmd.Flags().String("file", "", "Local text file to extract from")
	cmd.MarkFlagsMutuallyExclusive("text", "file")

	return cmd
}

func runExtract(out io.Writer, api *APIClient, req ExtractRequest, outputJSON bool) error {
	resp, err := api.Post("/extract", req)
	if err != nil {
		return fmt.Errorf("extract request failed: %w", err)
	}

	var result ExtractResponse
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return fmt.Errorf("failed to parse extraction: %w", err)
	}

	if outputJSON {
		return printJSON(out, result)
	}

	if result.Source != "" {
		fmt.Fprintf(out, "Source: %s\n\n", result.Source)
	}

	fmt.Fprintln(out, "Shipment:")
	s := result.Shipment
	for _, f := range []struct {
		label string
		value *string
	}{
		{"Shipment ID", s.ShipmentID},
		{"Shipper", s.Shipper},
		{"Consignee", s.Consignee},
		{"Pickup", s.PickupDateTime},
		{"Delivery", s.DeliveryDateTime},
		{"Equipment", s.EquipmentType},
		{"Mode", s.Mode},
		{"Rate", s.Rate},
		{"Currency", s.Currency},
		{"Weight", s.Weight},
		{"Carrier", s.CarrierName},
	} {
		value := "-"
		if f.value != nil {
			value = *f.value
		}
		fmt.Fprintf(out, "  %-12s %s\n", f.label+":", value)
	}

	if len(result.KeyValues) > 0 {
		fmt.Fprintln(out, "\nKey/values:")
		for _, kv := range result.KeyValues {
			fmt.Fprintf(out, "  %s: %s\n", kv.Key, kv.Value)
		}
	}

	fmt.Fprintf(out, "\nPreview:\n%s\n", result.TextPreview)
	return nil
}
