package schemas

import (
	_ "embed"
)

//go:embed ingestion_posts.schema.json
var ingestionPostsSchema string

// ValidatePosts validates the raw posts payload of an ingestion job
// submission against the embedded schema. Returns a *ValidationError when
// the payload is well-formed JSON but violates the schema.
func ValidatePosts(raw []byte) error {
	return ValidateJSONString(ingestionPostsSchema, string(raw))
}
