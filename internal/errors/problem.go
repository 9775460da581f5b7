package errors

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/render"
)

// ProblemDetails is an RFC 7807 problem document. Extension members are
// flattened into the top-level JSON object when marshalling.
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`

	Extensions map[string]interface{} `json:"-"`
}

// NewProblemDetails builds a problem document. Detail and instance may be
// empty; both are omitted from the JSON body when they are.
func NewProblemDetails(status int, problemType, title, detail, instance string) *ProblemDetails {
	return &ProblemDetails{
		Type:       problemType,
		Title:      title,
		Status:     status,
		Detail:     detail,
		Instance:   instance,
		Extensions: map[string]interface{}{},
	}
}

// WithExtension attaches an extension member and returns the receiver so
// calls can be chained onto the constructor.
func (pd *ProblemDetails) WithExtension(key string, value interface{}) *ProblemDetails {
	if pd.Extensions == nil {
		pd.Extensions = map[string]interface{}{}
	}
	pd.Extensions[key] = value
	return pd
}

// Render sets the response status for go-chi/render.
func (pd *ProblemDetails) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, pd.Status)
	return nil
}

// MarshalJSON merges the extension members into the standard members. The
// type alias drops the method set so the inner marshal does not recurse.
func (pd *ProblemDetails) MarshalJSON() ([]byte, error) {
	type plain ProblemDetails
	base, err := json.Marshal((*plain)(pd))
	if err != nil || len(pd.Extensions) == 0 {
		return base, err
	}

	doc := make(map[string]json.RawMessage, len(pd.Extensions)+5)
	if err := json.Unmarshal(base, &doc); err != nil {
		return nil, err
	}
	for key, value := range pd.Extensions {
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		doc[key] = raw
	}
	return json.Marshal(doc)
}
