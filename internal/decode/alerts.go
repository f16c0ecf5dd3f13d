package decode

import (
	"github.com/goccy/go-json"
)

// Translation is one language rendition of an alert text.
type Translation struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

// TranslatedText is the nested translations list upstream wraps alert texts in.
type TranslatedText struct {
	Translations []Translation `json:"translation"`
}

// RawActivePeriod is one alert validity window as it appears on the wire.
type RawActivePeriod struct {
	Start int64  `json:"start"`
	End   *int64 `json:"end"`
}

// RawInformedEntity is one affected route/stop/agency reference. Exactly one
// of the fields is typically set; empty fields mean the selector does not
// apply.
type RawInformedEntity struct {
	RouteID  string `json:"route_id"`
	StopID   string `json:"stop_id"`
	AgencyID string `json:"agency_id"`
}

// RawAlert is one service alert as served by the camsys JSON feeds.
type RawAlert struct {
	ID              string              `json:"id"`
	Effect          string              `json:"effect"`
	Cause           string              `json:"cause"`
	HeaderText      TranslatedText      `json:"header_text"`
	DescriptionText TranslatedText      `json:"description_text"`
	ActivePeriod    []RawActivePeriod   `json:"active_period"`
	InformedEntity  []RawInformedEntity `json:"informed_entity"`
}

// AlertsJSON parses a sequence-of-objects alert payload.
func AlertsJSON(feedName string, raw []byte) ([]RawAlert, error) {
	var alerts []RawAlert
	if err := json.Unmarshal(raw, &alerts); err != nil {
		return nil, &Error{Feed: feedName, Err: err}
	}
	return alerts, nil
}
