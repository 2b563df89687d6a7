package catalog

import (
	"encoding/json"
	"io"
	"net/http"
)

const maxResponseBytes = 1 << 20

func decodeJSON(resp *http.Response, out any) error {
	return json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out)
}
