package domain

import (
	"path/filepath"
	"strconv"
	"strings"
)

// AllowedUploadExtensions mirrors the extensions the job API accepts.
var AllowedUploadExtensions = []string{".mp4", ".mov", ".wav", ".mp3", ".ogg", ".m4a", ".txt"}

// AllowedUpload reports whether the file name has an accepted extension.
func AllowedUpload(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range AllowedUploadExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// JobOptions are the form fields sent alongside the uploaded file.
type JobOptions struct {
	Client string
	Title  string

	Lang         string
	Tone         string
	WhisperModel string
	Language     string
	Device       string
	Model        string
	Temperature  float64

	MaxInputChars int
	LinkedInCount int
	XCount        int
	BlogCount     int
	IGCount       int

	AIPosters         bool
	AIPosterCount     int
	StructuredPosters bool
	StructuredCount   int
	StructuredTheme   string
	StructuredPremium bool
}

// DefaultJobOptions returns the same defaults the job API applies.
func DefaultJobOptions() JobOptions {
	return JobOptions{
		Lang:            "auto",
		Tone:            "professional friendly",
		WhisperModel:    "small",
		Language:        "auto",
		Device:          "cpu",
		Model:           "gpt-4o-mini",
		Temperature:     0.3,
		MaxInputChars:   120000,
		LinkedInCount:   20,
		XCount:          10,
		BlogCount:       5,
		IGCount:         15,
		AIPosterCount:   5,
		StructuredCount: 3,
		StructuredTheme: "bright_canva",
	}
}

// FormField is one ordered text part of a multipart body.
type FormField struct {
	Name  string
	Value string
}

// Fields encodes the options as ordered form fields.
func (o JobOptions) Fields() []FormField {
	return []FormField{
		{Name: "client", Value: o.Client},
		{Name: "title", Value: o.Title},
		{Name: "lang", Value: o.Lang},
		{Name: "tone", Value: o.Tone},
		{Name: "whisper_model", Value: o.WhisperModel},
		{Name: "language", Value: o.Language},
		{Name: "device", Value: o.Device},
		{Name: "model", Value: o.Model},
		{Name: "temperature", Value: strconv.FormatFloat(o.Temperature, 'f', -1, 64)},
		{Name: "max_input_chars", Value: strconv.Itoa(o.MaxInputChars)},
		{Name: "linkedin_count", Value: strconv.Itoa(o.LinkedInCount)},
		{Name: "x_count", Value: strconv.Itoa(o.XCount)},
		{Name: "blog_count", Value: strconv.Itoa(o.BlogCount)},
		{Name: "ig_count", Value: strconv.Itoa(o.IGCount)},
		{Name: "ai_posters", Value: strconv.FormatBool(o.AIPosters)},
		{Name: "ai_poster_count", Value: strconv.Itoa(o.AIPosterCount)},
		{Name: "structured_posters", Value: strconv.FormatBool(o.StructuredPosters)},
		{Name: "structured_count", Value: strconv.Itoa(o.StructuredCount)},
		{Name: "structured_theme", Value: o.StructuredTheme},
		{Name: "structured_premium", Value: strconv.FormatBool(o.StructuredPremium)},
	}
}
