package issuer

import (
	"encoding/json"

	"credential-hub/internal/errorkit"
)

func marshalDoc(doc interface{}) ([]byte, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, errorkit.Malformedf("marshalling document for registry storage: %v", err)
	}
	return data, nil
}
