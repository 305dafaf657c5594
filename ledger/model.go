package ledger

import (
	"strconv"
	"time"
)

// Record is the server-side state of one refresh token, keyed by its jti.
// A revoked record is never un-revoked. ReplacedBy names the successor
// created by rotation, or is empty when the token was revoked terminally.
type Record struct {
	UserID     string
	TokenID    string
	Revoked    bool
	ReplacedBy string
	ExpiresAt  time.Time
	CreatedAt  time.Time
	UserAgent  string
	IP         string
}

const (
	fieldUser       = "uid"
	fieldRevoked    = "revoked"
	fieldReplacedBy = "replaced_by"
	fieldExpires    = "exp"
	fieldCreated    = "created"
	fieldUserAgent  = "ua"
	fieldIP         = "ip"
)

// fields flattens r into the argument order shared by the issue and rotate
// scripts: uid, exp, created, ua, ip.
func (r Record) fields() []interface{} {
	return []interface{}{
		r.UserID,
		strconv.FormatInt(r.ExpiresAt.UnixMilli(), 10),
		strconv.FormatInt(r.CreatedAt.UnixMilli(), 10),
		r.UserAgent,
		r.IP,
	}
}

func decodeRecord(tokenID string, h map[string]string) (*Record, error) {
	exp, err := strconv.ParseInt(h[fieldExpires], 10, 64)
	if err != nil {
		return nil, ErrCorrupt
	}
	created, err := strconv.ParseInt(h[fieldCreated], 10, 64)
	if err != nil {
		return nil, ErrCorrupt
	}
	if h[fieldUser] == "" {
		return nil, ErrCorrupt
	}
	return &Record{
		UserID:     h[fieldUser],
		TokenID:    tokenID,
		Revoked:    h[fieldRevoked] == "1",
		ReplacedBy: h[fieldReplacedBy],
		ExpiresAt:  time.UnixMilli(exp).UTC(),
		CreatedAt:  time.UnixMilli(created).UTC(),
		UserAgent:  h[fieldUserAgent],
		IP:         h[fieldIP],
	}, nil
}
