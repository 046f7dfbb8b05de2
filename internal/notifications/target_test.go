package notifications

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/hatchery-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/hatchery-backend/pkg/errors"
)

func TestParseTarget(t *testing.T) {
	id := uuid.New()
	tests := []struct {
		name    string
		in      TargetInput
		want    Target
		wantErr string
	}{
		{name: "missing", in: TargetInput{}, wantErr: "target is required"},
		{name: "unknown", in: TargetInput{Target: "everyone"}, wantErr: "invalid target"},
		{name: "case sensitive", in: TargetInput{Target: "ALL"}, wantErr: "invalid target"},
		{name: "public", in: TargetInput{Target: "public", Region: "ignored"}, want: PublicTarget{}},
		{name: "all", in: TargetInput{Target: "all"}, want: AllTarget{}},
		{name: "all scoped", in: TargetInput{Target: "all", AdminID: " ADM-0001 "}, want: AllTarget{AdminRef: "ADM-0001"}},
		{name: "region", in: TargetInput{Target: "region", Region: " Central "}, want: RegionTarget{Region: "Central"}},
		{name: "region blank", in: TargetInput{Target: "region", Region: "  "}, wantErr: "region required"},
		{name: "district", in: TargetInput{Target: "district", District: "Kiambu"}, want: DistrictTarget{District: "Kiambu"}},
		{name: "district blank", in: TargetInput{Target: "district"}, wantErr: "district required"},
		{name: "users", in: TargetInput{Target: "users", UserIDs: id.String()}, want: UsersTarget{IDs: []uuid.UUID{id}}},
		{name: "users empty", in: TargetInput{Target: "users", UserIDs: "[]"}, wantErr: "userIds array required"},
		{name: "users missing", in: TargetInput{Target: "users"}, wantErr: "userIds array required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTarget(tt.in)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
				assert.Equal(t, tt.wantErr, pkgerrors.As(err).Message())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeUserIDsShapes(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	want := []uuid.UUID{a, b}

	shapes := map[string]any{
		"json string":      `["` + a.String() + `","` + b.String() + `"]`,
		"string slice":     []string{a.String(), b.String()},
		"any slice":        []any{a.String(), b.String()},
		"raw message":      json.RawMessage(`["` + a.String() + `","` + b.String() + `", "` + a.String() + `"]`),
		"form values":      []string{`["` + a.String() + `"]`, b.String()},
		"uuid slice":       []uuid.UUID{a, b, a},
		"padded duplicate": []string{" " + a.String() + " ", b.String(), a.String()},
	}
	for name, raw := range shapes {
		t.Run(name, func(t *testing.T) {
			got, err := NormalizeUserIDs(raw)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}

	single, err := NormalizeUserIDs(a)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a}, single)

	empty, err := NormalizeUserIDs("")
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = NormalizeUserIDs([]string{a.String(), "not-a-uuid"})
	require.Error(t, err)
	assert.Equal(t, `invalid user id "not-a-uuid"`, pkgerrors.As(err).Message())

	_, err = NormalizeUserIDs(`["broken"`)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func genUUIDs() gopter.Gen {
	return gen.SliceOf(gen.IntRange(0, 7)).Map(func(picks []int) []uuid.UUID {
		pool := make([]uuid.UUID, 8)
		for i := range pool {
			pool[i] = uuid.NewSHA1(uuid.NameSpaceOID, []byte{byte(i)})
		}
		out := make([]uuid.UUID, 0, len(picks))
		for _, p := range picks {
			out = append(out, pool[p])
		}
		return out
	})
}

func TestNormalizeUserIDsProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("result has no duplicates and keeps first-seen order", prop.ForAll(
		func(ids []uuid.UUID) bool {
			raw := make([]string, 0, len(ids))
			for _, id := range ids {
				raw = append(raw, id.String())
			}
			got, err := NormalizeUserIDs(raw)
			if err != nil {
				return false
			}
			var expected []uuid.UUID
			seen := map[uuid.UUID]bool{}
			for _, id := range ids {
				if !seen[id] {
					seen[id] = true
					expected = append(expected, id)
				}
			}
			if len(got) != len(expected) {
				return false
			}
			for i := range got {
				if got[i] != expected[i] {
					return false
				}
			}
			return true
		},
		genUUIDs(),
	))

	properties.Property("JSON string and slice forms agree", prop.ForAll(
		func(ids []uuid.UUID) bool {
			encoded, err := json.Marshal(ids)
			if err != nil {
				return false
			}
			fromJSON, errJSON := NormalizeUserIDs(string(encoded))
			fromSlice, errSlice := NormalizeUserIDs(ids)
			if errJSON != nil || errSlice != nil {
				return false
			}
			return len(fromJSON) == len(fromSlice) && (len(fromJSON) == 0 || fromJSON[0] == fromSlice[0])
		},
		genUUIDs(),
	))

	properties.Property("only known targets parse", prop.ForAll(
		func(raw string) bool {
			_, err := ParseTarget(TargetInput{Target: raw, Region: "r", District: "d", UserIDs: uuid.NewString()})
			known := enums.BroadcastTarget(strings.TrimSpace(raw)).IsValid()
			return known == (err == nil)
		},
		gen.OneGenOf(gen.AlphaString(), gen.OneConstOf("all", "users", "region", "district", "public", " all ")),
	))

	properties.TestingRun(t)
}
