package entity

import (
	"fmt"
	"regexp"

	"github.com/google/uuid"
)

const DefaultExternalIDPrefix = "BOOKING"

const uuidPattern = `[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`

// ExternalIDCodec formats and parses the reference sent to the gateway as
// external_id: "<PREFIX>-<bookingId>-<paymentId>". UUIDs contain dashes
// themselves, so parsing anchors on the two UUID shapes instead of
// splitting.
type ExternalIDCodec struct {
	prefix  string
	pattern *regexp.Regexp
}

func NewExternalIDCodec(prefix string) *ExternalIDCodec {
	if prefix == "" {
		prefix = DefaultExternalIDPrefix
	}
	return &ExternalIDCodec{
		prefix:  prefix,
		pattern: regexp.MustCompile(`^` + regexp.QuoteMeta(prefix) + `-(` + uuidPattern + `)-(` + uuidPattern + `)$`),
	}
}

func (c *ExternalIDCodec) Format(bookingID, paymentID uuid.UUID) string {
	return fmt.Sprintf("%s-%s-%s", c.prefix, bookingID, paymentID)
}

func (c *ExternalIDCodec) Parse(externalID string) (bookingID, paymentID uuid.UUID, err error) {
	m := c.pattern.FindStringSubmatch(externalID)
	if m == nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("external id %q does not match %s-<booking>-<payment>", externalID, c.prefix)
	}
	if bookingID, err = uuid.Parse(m[1]); err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("parse booking id: %w", err)
	}
	if paymentID, err = uuid.Parse(m[2]); err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("parse payment id: %w", err)
	}
	return bookingID, paymentID, nil
}
