package binance

import (
	"net/http"

	json "github.com/goccy/go-json"

	"exgate/internal/core"
)

// classifyResponse maps every status the exchange can answer with onto the
// error taxonomy. Only 200 is a success.
func classifyResponse(status int, body []byte) ([]byte, error) {
	switch status {
	case http.StatusOK:
		return body, nil
	case http.StatusInternalServerError:
		return nil, core.ServerError()
	case http.StatusServiceUnavailable:
		return nil, core.Unavailable()
	case http.StatusUnauthorized:
		return nil, core.Unauthorized()
	case http.StatusBadRequest:
		var ce core.ContentError
		if err := json.Unmarshal(body, &ce); err != nil {
			return nil, core.Serialization(err)
		}
		return nil, core.Content(ce)
	default:
		return nil, core.OtherStatus(status)
	}
}
