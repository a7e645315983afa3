package metadata

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/govm-net/nativevm/iotype"
)

func formatDetails(d iotype.TypeDetails) string {
	return fmt.Sprintf("%d bytes, align %d", d.RecommendedCapacity, d.Alignment)
}

// Describe renders a human-readable dump of a contract metadata blob.
func Describe(metadata []byte) (string, error) {
	var sb strings.Builder
	title := cases.Title(language.English)
	d := NewDecoder(metadata)
	for {
		item, err := d.DecodeNext()
		if errors.Is(err, io.EOF) {
			return sb.String(), nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to describe metadata: %w", err)
		}

		switch item.Kind {
		case KindContract:
			sb.WriteString(fmt.Sprintf("Contract %q\n", item.Name))
			sb.WriteString(fmt.Sprintf("  state: %s\n", formatDetails(item.StateDetails)))
			sb.WriteString(fmt.Sprintf("  slot: %s\n", formatDetails(item.SlotDetails)))
			sb.WriteString(fmt.Sprintf("  tmp: %s\n", formatDetails(item.TmpDetails)))
		case KindTrait:
			sb.WriteString(fmt.Sprintf("Trait %q\n", item.Name))
		}

		for {
			method, err := item.Methods.DecodeNext()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return "", fmt.Errorf("failed to describe methods of %q: %w", item.Name, err)
			}
			sb.WriteString(fmt.Sprintf("  %s %q (%d arguments)\n", title.String(method.Kind.String()), method.Name, method.NumArguments))

			args, err := method.Arguments.Collect()
			if err != nil {
				return "", fmt.Errorf("failed to describe arguments of %q: %w", method.Name, err)
			}
			for _, arg := range args {
				line := fmt.Sprintf("    %s %q", title.String(arg.Kind.String()), arg.Name)
				if arg.TypeDetails != nil {
					line += ": " + formatDetails(*arg.TypeDetails)
				}
				sb.WriteString(line + "\n")
			}
		}
	}
}
