// Package compare diffs expected fixture rows against rows read back from the
// analytics views.
package compare

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/stemsi/analytics-middletier/internal/model"
)

// View names used in mismatches.
const (
	ViewEducationOrganization = "epp_eppdim"
	ViewUserAuthorization     = "rls_userauthorization"
)

// Null is how an absent value is rendered in a mismatch.
const Null = "<null>"

// TimestampLayout renders timestamps in mismatches.
const TimestampLayout = "2006-01-02T15:04:05.999999999"

type field struct {
	name  string
	value string
	null  bool
}

type row struct {
	// match pairs rows and must be comparable; key only labels mismatches.
	match  any
	key    string
	fields []field
}

type nullable struct {
	value string
	null  bool
}

type userAuthKey struct {
	userKey    int
	student    string
	sectionKey nullable
	school     nullable
}

// EducationOrganizations compares EPP dimension rows matched by
// EducationOrganizationKey.
func EducationOrganizations(expected, actual []model.EducationOrganizationDimension) []model.Mismatch {
	return diff(ViewEducationOrganization, mapRows(expected, eppDimRow), mapRows(actual, eppDimRow))
}

// UserAuthorizations compares user authorization rows. A user can hold
// several rows, so rows are matched on the user key together with the
// permission columns that tell them apart.
func UserAuthorizations(expected, actual []model.UserAuthorization) []model.Mismatch {
	return diff(ViewUserAuthorization, mapRows(expected, userAuthRow), mapRows(actual, userAuthRow))
}

func eppDimRow(d model.EducationOrganizationDimension) row {
	return row{
		match: d.EducationOrganizationKey,
		key:   strconv.Itoa(d.EducationOrganizationKey),
		fields: []field{
			str("NameOfInstitution", d.NameOfInstitution),
			{name: "LastModifiedDate", value: timestamp(d.LastModifiedDate)},
		},
	}
}

func userAuthRow(a model.UserAuthorization) row {
	match := userAuthKey{
		userKey:    a.UserKey,
		student:    a.StudentPermission,
		sectionKey: nullableOf(a.SectionKeyPermission),
		school:     nullableOf(a.SchoolPermission),
	}
	return row{
		match: match,
		key: strings.Join([]string{
			strconv.Itoa(match.userKey),
			keyPart(nullable{value: match.student}),
			keyPart(match.sectionKey),
			keyPart(match.school),
		}, "|"),
		fields: []field{
			str("UserScope", a.UserScope),
			str("SectionPermission", a.SectionPermission),
			integer("DistrictId", a.DistrictID),
		},
	}
}

func mapRows[T any](in []T, fn func(T) row) []row {
	out := make([]row, len(in))
	for i, v := range in {
		out[i] = fn(v)
	}
	return out
}

// diff pairs rows with equal keys in input order; surplus rows on either side
// are reported as missing or unexpected.
func diff(view string, expected, actual []row) []model.Mismatch {
	pending := make(map[any][]row, len(actual))
	for _, r := range actual {
		pending[r.match] = append(pending[r.match], r)
	}

	mismatches := make([]model.Mismatch, 0)
	for _, want := range expected {
		candidates := pending[want.match]
		if len(candidates) == 0 {
			mismatches = append(mismatches, model.Mismatch{View: view, Kind: model.MismatchMissing, Key: want.key})
			continue
		}
		got := candidates[0]
		pending[want.match] = candidates[1:]

		for i, f := range want.fields {
			if g := got.fields[i]; f.value != g.value || f.null != g.null {
				mismatches = append(mismatches, model.Mismatch{
					View:     view,
					Kind:     model.MismatchField,
					Key:      want.key,
					Field:    f.name,
					Expected: f.value,
					Actual:   g.value,
				})
			}
		}
	}

	for _, r := range actual {
		if left := pending[r.match]; len(left) > 0 {
			pending[r.match] = left[1:]
			mismatches = append(mismatches, model.Mismatch{View: view, Kind: model.MismatchUnexpected, Key: r.key})
		}
	}

	sort.SliceStable(mismatches, func(i, j int) bool {
		a, b := mismatches[i], mismatches[j]
		if a.Key != b.Key {
			return keyLess(a.Key, b.Key)
		}
		return a.Field < b.Field
	})
	return mismatches
}

// keyLess orders keys by their leading integer, then lexically.
func keyLess(a, b string) bool {
	ai, aRest := leadingInt(a)
	bi, bRest := leadingInt(b)
	if ai != bi {
		return ai < bi
	}
	return aRest < bRest
}

func leadingInt(key string) (int, string) {
	head, rest, _ := strings.Cut(key, "|")
	n, err := strconv.Atoi(head)
	if err != nil {
		return 0, key
	}
	return n, rest
}

func nullableOf(s *string) nullable {
	if s == nil {
		return nullable{value: Null, null: true}
	}
	return nullable{value: *s}
}

// keyPart quotes values that could be read as a separator or as Null.
func keyPart(n nullable) string {
	if n.null {
		return Null
	}
	if n.value == Null || strings.ContainsAny(n.value, `|"`) {
		return strconv.Quote(n.value)
	}
	return n.value
}

func str(name string, s *string) field {
	if s == nil {
		return field{name: name, value: Null, null: true}
	}
	return field{name: name, value: *s}
}

func integer(name string, i *int) field {
	if i == nil {
		return field{name: name, value: Null, null: true}
	}
	return field{name: name, value: strconv.Itoa(*i)}
}

func timestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
