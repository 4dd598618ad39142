package domain

import (
	"errors"
	"fmt"
	"time"
)

// WireTrial is the schema-less form of a trial used for storage and
// transport. The result travels as its canonical string encoding.
type WireTrial struct {
	DatabaseID   string    `json:"databaseId,omitempty" yaml:"databaseId,omitempty"`
	Creator      string    `json:"creator"              yaml:"creator"`
	CreationDate time.Time `json:"creationDate"         yaml:"creationDate"`
	Location     *Location `json:"location,omitempty"   yaml:"location,omitempty"`
	ResultStr    string    `json:"resultStr"            yaml:"resultStr"`
	IsIgnored    bool      `json:"isIgnored"            yaml:"isIgnored"`
}

// ToTypedTrial parses the wire result with parse and returns the typed trial.
// A parse failure is reported as ErrMalformedResult.
func ToTypedTrial[R Number](w WireTrial, parse func(string) (R, error)) (*Trial[R], error) {
	if w.ResultStr == "" {
		return nil, fmt.Errorf("%w: empty result", ErrMalformedResult)
	}

	result, err := parse(w.ResultStr)
	if err != nil {
		return nil, ensureMalformed(err)
	}

	t := NewTrial(w.Creator, w.CreationDate, w.Location, result)
	t.ignored = w.IsIgnored
	return t, nil
}

// FromTypedTrial renders a typed trial in wire form with format.
func FromTypedTrial[R Number](t *Trial[R], format func(R) string) WireTrial {
	return WireTrial{
		Creator:      t.creator,
		CreationDate: t.creationDate,
		Location:     copyLocation(t.location),
		ResultStr:    format(t.result),
		IsIgnored:    t.ignored,
	}
}

// ensureMalformed makes sure errors from caller supplied parsers still match
// ErrMalformedResult.
func ensureMalformed(err error) error {
	if errors.Is(err, ErrMalformedResult) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrMalformedResult, err)
}
