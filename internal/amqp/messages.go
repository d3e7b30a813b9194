package amqp

import (
	"encoding/json"
	"time"
)

// ReportExportedMessage announces a generated statistics report. It carries
// the aggregates so consumers need no access to the record sources.
type ReportExportedMessage struct {
	Filename      string        `json:"filename"`
	Source        string        `json:"source"`
	Filter        FilterPayload `json:"filter"`
	Rows          []RowPayload  `json:"rows"`
	BenefitsTotal int64         `json:"benefitsTotal"`
	GeneratedAt   time.Time     `json:"generatedAt"`
}

// FilterPayload is the filter the report was computed with. Empty bounds
// mean unconstrained.
type FilterPayload struct {
	Start  string `json:"start,omitempty"`
	End    string `json:"end,omitempty"`
	Status string `json:"status"`
}

type RowPayload struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
	Detail   string `json:"detail"`
	Total    string `json:"total"`
}

func (m *ReportExportedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ReportExportedMessageFromJSON(data []byte) (*ReportExportedMessage, error) {
	var msg ReportExportedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
