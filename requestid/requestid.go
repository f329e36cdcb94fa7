// Package requestid generates the X-Vcap-Request-Id-style identifier every
// accepted request is tagged with, grounded on common/uuid.GenerateUUID in
// the teacher (gorouter stamps every proxied request the same way).
package requestid

import . "github.com/nu7hatch/gouuid"

// Header is the name under which a generated ID is stored on a request, and
// looked up when a caller supplies its own.
const Header = "X-Request-Id"

// Generate returns a new random request identifier.
func Generate() (string, error) {
	guid, err := NewV4()
	if err != nil {
		return "", err
	}
	return guid.String(), nil
}
