//go:build !contrib

package vision

import (
	"errors"
	"testing"

	"github.com/andresmejia3/keybench/internal/features"
)

func TestContribKindsUnsupportedWithoutTag(t *testing.T) {
	tk := NewToolkit()
	if _, err := tk.NewDetector(features.Harris); !errors.Is(err, features.ErrUnsupportedDetector) {
		t.Errorf("HARRIS: expected ErrUnsupportedDetector, got %v", err)
	}
	for _, kind := range []features.DescriptorKind{features.DescBRIEF, features.DescFREAK} {
		if _, err := tk.NewExtractor(kind); !errors.Is(err, features.ErrUnsupportedDescriptor) {
			t.Errorf("%s: expected ErrUnsupportedDescriptor, got %v", kind, err)
		}
	}
}
