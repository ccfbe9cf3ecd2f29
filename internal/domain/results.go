package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type Channel string

const (
	ChannelLinkedIn  Channel = "linkedin"
	ChannelX         Channel = "x"
	ChannelInstagram Channel = "ig"
	ChannelBlog      Channel = "blog"
)

// ChannelInfo pairs a drafts key with its display label.
type ChannelInfo struct {
	Key   Channel
	Label string
}

// Channels is the fixed, ordered set of draft channels.
var Channels = []ChannelInfo{
	{Key: ChannelLinkedIn, Label: "LinkedIn"},
	{Key: ChannelX, Label: "X"},
	{Key: ChannelInstagram, Label: "Instagram"},
	{Key: ChannelBlog, Label: "Blog"},
}

// LookupChannel reports whether key names one of the fixed channels.
func LookupChannel(key string) (ChannelInfo, bool) {
	for _, info := range Channels {
		if string(info.Key) == strings.ToLower(strings.TrimSpace(key)) {
			return info, true
		}
	}
	return ChannelInfo{}, false
}

// Item is an opaque draft post. Only the optional "id" field is interpreted.
type Item struct {
	raw json.RawMessage
}

func NewItem(raw json.RawMessage) Item {
	return Item{raw: append(json.RawMessage(nil), raw...)}
}

func (i *Item) UnmarshalJSON(data []byte) error {
	i.raw = append(i.raw[:0], data...)
	return nil
}

func (i Item) MarshalJSON() ([]byte, error) {
	if len(i.raw) == 0 {
		return []byte("null"), nil
	}
	return i.raw, nil
}

func (i Item) Raw() json.RawMessage {
	return append(json.RawMessage(nil), i.raw...)
}

// ID returns the item's "id" field as text, or "" when absent.
func (i Item) ID() string {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(i.raw, &fields); err != nil {
		return ""
	}
	value, ok := fields["id"]
	if !ok {
		return ""
	}
	var text string
	if err := json.Unmarshal(value, &text); err == nil {
		return text
	}
	var number json.Number
	decoder := json.NewDecoder(bytes.NewReader(value))
	decoder.UseNumber()
	if err := decoder.Decode(&number); err == nil {
		if _, err := strconv.ParseFloat(number.String(), 64); err == nil {
			return number.String()
		}
	}
	// Other values print as their JSON text; null and false count as absent.
	trimmed := bytes.TrimSpace(value)
	if bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte("false")) {
		return ""
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, trimmed); err != nil {
		return string(trimmed)
	}
	return compact.String()
}

// Asset is a downloadable file produced by the job.
type Asset struct {
	URL  string `json:"url"`
	Name string `json:"name"`
	Path string `json:"path,omitempty"`
}

type PosterGroup struct {
	Name   string
	Assets []Asset
}

// PosterGroups keeps poster groups in the order the payload listed them.
type PosterGroups []PosterGroup

func (g *PosterGroups) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*g = nil
		return nil
	}

	decoder := json.NewDecoder(bytes.NewReader(data))
	token, err := decoder.Token()
	if err != nil {
		return fmt.Errorf("decode posters: %w", err)
	}
	if delim, ok := token.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("decode posters: expected object, got %v", token)
	}

	groups := make(PosterGroups, 0)
	index := make(map[string]int)
	for decoder.More() {
		keyToken, err := decoder.Token()
		if err != nil {
			return fmt.Errorf("decode posters key: %w", err)
		}
		key, _ := keyToken.(string)

		var assets []Asset
		if err := decoder.Decode(&assets); err != nil {
			return fmt.Errorf("decode posters group %q: %w", key, err)
		}
		if position, exists := index[key]; exists {
			groups[position].Assets = assets
			continue
		}
		index[key] = len(groups)
		groups = append(groups, PosterGroup{Name: key, Assets: assets})
	}
	if _, err := decoder.Token(); err != nil {
		return fmt.Errorf("decode posters: %w", err)
	}

	*g = groups
	return nil
}

func (g PosterGroups) MarshalJSON() ([]byte, error) {
	var buffer bytes.Buffer
	buffer.WriteByte('{')
	for position, group := range g {
		if position > 0 {
			buffer.WriteByte(',')
		}
		key, err := json.Marshal(group.Name)
		if err != nil {
			return nil, err
		}
		assets := group.Assets
		if assets == nil {
			assets = []Asset{}
		}
		value, err := json.Marshal(assets)
		if err != nil {
			return nil, err
		}
		buffer.Write(key)
		buffer.WriteByte(':')
		buffer.Write(value)
	}
	buffer.WriteByte('}')
	return buffer.Bytes(), nil
}

// ResultSet is the decoded results payload of one job. It is rebuilt on every
// fetch and never merged with an earlier one.
type ResultSet struct {
	ID       string             `json:"id,omitempty"`
	Client   string             `json:"client,omitempty"`
	Title    string             `json:"title,omitempty"`
	JobPath  string             `json:"job_path,omitempty"`
	Summary  *string            `json:"summary,omitempty"`
	Drafts   map[Channel][]Item `json:"drafts,omitempty"`
	Posters  PosterGroups       `json:"posters,omitempty"`
	Docs     []Asset            `json:"docs,omitempty"`
	Cards    []Asset            `json:"cards,omitempty"`
	Manifest json.RawMessage    `json:"manifest,omitempty"`
}

// SummaryText returns the summary or "" when absent.
func (r ResultSet) SummaryText() string {
	if r.Summary == nil {
		return ""
	}
	return strings.TrimSpace(*r.Summary)
}
