package models

type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Response describes a successful state change.
type Response struct {
	Attributes []Attribute `json:"attributes"`
}

func NewResponse() Response {
	return Response{Attributes: []Attribute{}}
}

func (r Response) AddAttribute(key, value string) Response {
	r.Attributes = append(r.Attributes, Attribute{Key: key, Value: value})
	return r
}

// Attribute returns the value of the first attribute with the given key.
func (r Response) Attribute(key string) (string, bool) {
	for _, attr := range r.Attributes {
		if attr.Key == key {
			return attr.Value, true
		}
	}
	return "", false
}
