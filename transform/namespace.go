package transform

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
)

// SignedID returns the dataset-scoped document id for an entity: the
// entity id joined with the hex HMAC-SHA1 of the id keyed by the
// dataset name. Entities sharing an id across datasets store as
// separate documents, and an id cannot be forged into a foreign
// dataset without its name.
func SignedID(dataset, id string) string {
	mac := hmac.New(sha1.New, []byte(dataset))
	mac.Write([]byte(id))

	return id + "." + hex.EncodeToString(mac.Sum(nil))
}
