// Package normalize turns raw calendar entries into typed carpool and
// transfer events: it parses free-text event titles, resolves fuzzy
// location strings against the canonical sets, and collects per-event
// failures without aborting the batch.
package normalize

import (
	"errors"
	"strconv"
	"strings"

	"carpoolcal/internal/model"
)

var (
	// ErrUnrecognizedEventType means the title's first word is neither a
	// carpool nor a transfer magic word.
	ErrUnrecognizedEventType = errors.New("unrecognized event type")

	// ErrMalformedCarpoolSyntax means a carpool title did not contain at
	// least a magic word and a driver token.
	ErrMalformedCarpoolSyntax = errors.New("malformed carpool syntax")

	// ErrMalformedTransferSyntax means a transfer title did not decompose
	// into exactly debtor, creditor and a numeric amount.
	ErrMalformedTransferSyntax = errors.New("malformed transfer syntax")
)

// Topic is the decomposed form of one event title. Kind selects which of
// the remaining fields are meaningful.
type Topic struct {
	Kind model.EventType

	Driver     string
	Passengers []string

	Debtor   string
	Creditor string
	Amount   float64
}

// ParseTopic classifies and decomposes a free-text event title.
//
// The first whitespace-delimited word decides the kind: it must contain
// "carpool" or "transfer" (case-insensitive). The rest of the title is
// tokenized by treating every run of non-alphanumeric characters as a
// separator, so "Carpool - Peter + Martin" and "carpool Peter, Martin"
// decompose identically. All tokens are lowercased.
//
// Names must be single alphanumeric words: "carpool PeterMartin" yields
// one combined driver token, and a trailing "+1" becomes a passenger
// token "1".
func ParseTopic(title string) (Topic, error) {
	head := strings.Fields(title)
	if len(head) == 0 {
		return Topic{}, ErrUnrecognizedEventType
	}

	magic := strings.ToLower(head[0])
	tokens := tokenize(title)

	switch {
	case strings.Contains(magic, "carpool"):
		return parseCarpool(tokens)
	case strings.Contains(magic, "transfer"):
		return parseTransfer(tokens)
	default:
		return Topic{}, ErrUnrecognizedEventType
	}
}

// parseCarpool expects tokens of the form [magic, driver, passengers...].
func parseCarpool(tokens []string) (Topic, error) {
	if len(tokens) < 2 {
		return Topic{}, ErrMalformedCarpoolSyntax
	}

	t := Topic{
		Kind:   model.TypeCarpool,
		Driver: tokens[1],
	}
	if len(tokens) > 2 {
		t.Passengers = tokens[2:]
	}
	return t, nil
}

// parseTransfer expects tokens of the form [magic, debtor, creditor, amount].
func parseTransfer(tokens []string) (Topic, error) {
	if len(tokens) != 4 {
		return Topic{}, ErrMalformedTransferSyntax
	}

	amount, err := strconv.ParseFloat(tokens[3], 64)
	if err != nil {
		return Topic{}, ErrMalformedTransferSyntax
	}

	return Topic{
		Kind:     model.TypeTransfer,
		Debtor:   tokens[1],
		Creditor: tokens[2],
		Amount:   amount,
	}, nil
}

// tokenize splits a title on runs of non-alphanumeric characters and
// lowercases the resulting tokens. Empty tokens are dropped.
func tokenize(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !isAlnum(r)
	})
	for i, f := range fields {
		fields[i] = strings.ToLower(f)
	}
	return fields
}

func isAlnum(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	}
	return false
}
