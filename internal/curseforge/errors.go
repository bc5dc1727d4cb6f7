package curseforge

import (
	"fmt"
	"reflect"

	"github.com/pkg/errors"
)

type FingerprintAPIError struct {
	Lookup []int
	Err    error
}

func (fingerprintError *FingerprintAPIError) Error() string {
	return fmt.Sprintf("fingerprints %v cannot be matched due to an api error: %v", fingerprintError.Lookup, fingerprintError.Err)
}

func (fingerprintError *FingerprintAPIError) Is(target error) bool {
	var t *FingerprintAPIError
	if !errors.As(target, &t) {
		return false
	}
	return reflect.DeepEqual(t.Lookup, fingerprintError.Lookup)
}

func (fingerprintError *FingerprintAPIError) Unwrap() error {
	return fingerprintError.Err
}
