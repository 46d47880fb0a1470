package txreq

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	whatAttr = "what"
	whenAttr = "when"
)

const (
	WhatCommitted          = "committed"
	WhatPostToNetwork      = "postToNetwork"
	WhatPostToNetworkError = "postToNetworkError"
	WhatPostBeefSuccess    = "postBeefSuccess"
	WhatPostBeefError      = "postBeefError"
	WhatDoubleSpend        = "doubleSpend"
	WhatAggregateResults   = "aggregateResults"
	WhatStatusChange       = "statusChange"
	WhatBatchAssigned      = "batchAssigned"
	WhatNotifyMerged       = "notifyMerged"
	WhatSweep              = "sweep"
)

// HistoryNote is one entry of the append-only audit log of a request. Attributes are flattened
// into the same JSON object as the when and what keys.
type HistoryNote struct {
	When       time.Time      `json:"when"`
	What       string         `json:"what"`
	Attributes map[string]any `json:"-"`
}

func NewNote(when time.Time, what string, attrs ...any) HistoryNote {
	note := HistoryNote{
		When:       when.UTC(),
		What:       what,
		Attributes: make(map[string]any, len(attrs)/2),
	}

	for i := 0; i+1 < len(attrs); i += 2 {
		key, ok := attrs[i].(string)
		if !ok {
			continue
		}
		note.Attributes[key] = attrs[i+1]
	}

	return note
}

func (n HistoryNote) MarshalJSON() ([]byte, error) {
	data := make(map[string]any, len(n.Attributes)+2)
	for key, value := range n.Attributes {
		data[key] = value
	}
	data[whenAttr] = n.When
	data[whatAttr] = n.What

	encoded, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal history note: %w", err)
	}

	return encoded, nil
}

func (n *HistoryNote) UnmarshalJSON(data []byte) error {
	type alias HistoryNote
	var aux alias

	if err := json.Unmarshal(data, &aux); err != nil {
		return fmt.Errorf("failed to unmarshal history note: %w", err)
	}

	var rawData map[string]any
	if err := json.Unmarshal(data, &rawData); err != nil {
		return fmt.Errorf("failed to unmarshal history note attributes: %w", err)
	}
	delete(rawData, whenAttr)
	delete(rawData, whatAttr)

	n.When = aux.When
	n.What = aux.What
	n.Attributes = rawData

	return nil
}

func (n HistoryNote) ToMap() map[string]any {
	result := make(map[string]any, len(n.Attributes)+2)
	for k, v := range n.Attributes {
		result[k] = v
	}
	result[whatAttr] = n.What
	result[whenAttr] = n.When

	return result
}

type History []HistoryNote

// PrettyPrint writes the notes as yaml.
func (h History) PrettyPrint(writer io.Writer) error {
	all := make([]map[string]any, len(h))
	for i, note := range h {
		all[i] = note.ToMap()
	}

	err := yaml.NewEncoder(writer).Encode(all)
	if err != nil {
		return fmt.Errorf("error writing history notes: %w", err)
	}

	return nil
}
