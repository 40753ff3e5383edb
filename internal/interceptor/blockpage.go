package interceptor

import (
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// ReasonMalicious is the only block reason the guard emits.
const ReasonMalicious = "malicious"

// BlockPageURL returns the address of the blocking page for original.
// Parameters are appended in a fixed order (url, reason, timestamp) after
// any query the page address already carries.
func BlockPageURL(page, original string, at time.Time) (string, error) {
	u, err := url.Parse(page)
	if err != nil {
		return "", fmt.Errorf("could not parse block page URL: %w", err)
	}

	q := "url=" + url.QueryEscape(original) +
		"&reason=" + ReasonMalicious +
		"&timestamp=" + strconv.FormatInt(at.UnixMilli(), 10)
	if u.RawQuery != "" {
		q = u.RawQuery + "&" + q
	}
	u.RawQuery = q

	return u.String(), nil
}
