// api/map.go
package api

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gosimple/slug"
)

// Tags attached to products this service manages. ManagedTag marks ownership;
// the availability tags are derived from the entry's Code field.
const (
	ManagedTag   = "mbpr-managed"
	AvailableTag = "mbpr-available"
	AdoptedTag   = "mbpr-adopted"
)

// MetafieldNamespace is the namespace for all structured dog attributes.
const MetafieldNamespace = "mbpr"

// Code values that mean a dog is currently available. Matching is exact after
// trimming; anything not listed here and not "Adopted" gets no status tag.
var availableCodes = map[string]bool{
	"Available: Now":        true,
	"Available Now: Mama's": true,
	"Available: VIP Litter": true,
}

// ToHandle derives the product handle for a dog name. The slug is doubled
// ("rex" -> "rex-rex") and a fixed suffix appended, matching the handles the
// store has used since launch. Same name always yields the same handle; this
// is the sole idempotency key for product lookup.
func ToHandle(name, suffix string) string {
	return slug.Make(name+" "+name) + suffix
}

// TagsForCode maps an availability code to the product tag set.
func TagsForCode(code string) []string {
	tags := []string{ManagedTag}
	switch val := strings.TrimSpace(code); {
	case availableCodes[val]:
		tags = append(tags, AvailableTag)
	case val == "Adopted":
		tags = append(tags, AdoptedTag)
	}
	return tags
}

// Metafield is one structured key/value to set on a product.
type Metafield struct {
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
	Type      string `json:"type"`
	Value     string `json:"value"`
}

const (
	typeText = "single_line_text_field"
	typeDate = "date"
)

// MapMetafields projects an entry's optional attributes into metafields.
// Empty fields are omitted entirely; a birthday that will not parse is logged
// and skipped rather than failing the sync.
func MapMetafields(entry *Entry) []Metafield {
	var metas []Metafield
	add := func(key, typ, value string) {
		metas = append(metas, Metafield{Namespace: MetafieldNamespace, Key: key, Type: typ, Value: value})
	}

	if entry.LitterName != "" {
		add("litter", typeText, entry.LitterName)
	}
	if entry.PupBirthday != "" {
		if day, err := parseBirthday(entry.PupBirthday); err != nil {
			log.Printf("Warning: entry %d has unparseable birthday %q: %v", entry.ID, entry.PupBirthday, err)
		} else {
			add("birthday", typeDate, day)
		}
	}
	if entry.Breed != "" {
		add("breed", typeText, entry.Breed)
	}
	if entry.Gender != "" {
		add("gender", typeText, entry.Gender)
	}
	if entry.EstimatedSizeWhenGrown != "" {
		add("adult_size", typeText, entry.EstimatedSizeWhenGrown)
	}
	if entry.Availability != "" {
		add("availability", typeText, entry.Availability)
	}
	return metas
}

var birthdayLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"1/2/2006",
	"01/02/2006",
}

// parseBirthday normalizes the form's date string to the YYYY-MM-DD calendar
// form the metafield type requires.
func parseBirthday(raw string) (string, error) {
	for _, layout := range birthdayLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("2006-01-02"), nil
		}
	}
	return "", fmt.Errorf("unrecognized date format %q", raw)
}

// CollectFileRefs gathers the entry's photos in display order: main photo
// first, then the four additional slots. Nil slots and refs without either a
// url or an id are skipped.
func CollectFileRefs(entry *Entry) []*FileRef {
	var refs []*FileRef
	for _, ref := range []*FileRef{
		entry.MainPhoto,
		entry.AdditionalPhoto1,
		entry.AdditionalPhoto2,
		entry.AdditionalPhoto3,
		entry.AdditionalPhoto4,
	} {
		if ref.Usable() {
			refs = append(refs, ref)
		}
	}
	return refs
}
