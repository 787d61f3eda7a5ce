package bins_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"covgen/internal/bins"
	"covgen/internal/domain"
)

func rangeOf(lo, hi int64) domain.Override {
	return domain.Override{Kind: domain.OverrideRange, Low: domain.Finite(lo), High: domain.Finite(hi)}
}

func listOf(vs ...int64) domain.Override {
	return domain.Override{Kind: domain.OverrideList, Values: vs}
}

// intervals flattens interval bins into "[lo:hi]" strings.
func intervals(bs []bins.Bin) []string {
	out := make([]string, len(bs))
	for i, b := range bs {
		out[i] = "[" + b.Low.String() + ":" + b.High.String() + "]"
	}
	return out
}

func names(bs []bins.Bin) []string {
	out := make([]string, len(bs))
	for i, b := range bs {
		out[i] = b.Name
	}
	return out
}

func TestSplitWidthClipsLastBin(t *testing.T) {
	got := bins.Plan("len", rangeOf(1, 10), bins.Options{Split: 3})
	assert.Equal(t, []string{"[1:3]", "[4:6]", "[7:9]", "[10:10]"}, intervals(got))
	assert.Equal(t, []string{"len_v1_3", "len_v4_6", "len_v7_9", "len_v10_10"}, names(got))
}

func TestSplitWidthWinsOverCount(t *testing.T) {
	got := bins.Plan("len", rangeOf(1, 10), bins.Options{Split: 5, Count: 4})
	assert.Equal(t, []string{"[1:5]", "[6:10]"}, intervals(got))
	for _, b := range got {
		assert.Zero(t, b.Count)
	}
}

func TestSplitWidthLargerThanRange(t *testing.T) {
	got := bins.Plan("len", rangeOf(1, 10), bins.Options{Split: 100})
	assert.Equal(t, []string{"[1:10]"}, intervals(got))
}

func TestCountSplitsEqualWidth(t *testing.T) {
	got := bins.Plan("len", rangeOf(1, 100), bins.Options{Count: 4})
	assert.Equal(t, []string{"[1:25]", "[26:50]", "[51:75]", "[76:100]"}, intervals(got))
}

func TestCountLastBinAbsorbsRemainder(t *testing.T) {
	got := bins.Plan("len", rangeOf(0, 10), bins.Options{Count: 3})
	assert.Equal(t, []string{"[0:2]", "[3:5]", "[6:10]"}, intervals(got))
}

func TestCountWiderThanRange(t *testing.T) {
	got := bins.Plan("len", rangeOf(1, 3), bins.Options{Count: 8})
	assert.Equal(t, []string{"[1:1]", "[2:2]", "[3:3]"}, intervals(got))
}

func TestCountArrayPolicy(t *testing.T) {
	got := bins.Plan("len", rangeOf(1, 100), bins.Options{Count: 4, CountPolicy: bins.CountArray, Name: "small"})
	require.Len(t, got, 1)
	assert.Equal(t, "small", got[0].Name)
	assert.Equal(t, 4, got[0].Count)
	assert.Equal(t, []string{"[1:100]"}, intervals(got))
}

func TestIndexNaming(t *testing.T) {
	got := bins.Plan("len", rangeOf(1, 10), bins.Options{Split: 5, Name: "grp", Naming: bins.NamingIndex})
	assert.Equal(t, []string{"grp_r1", "grp_r2"}, names(got))
}

func TestSingleBinDefaults(t *testing.T) {
	got := bins.Plan("len", rangeOf(5, 9), bins.Options{})
	require.Len(t, got, 1)
	assert.Equal(t, "len_v5_9", got[0].Name)
	assert.True(t, got[0].IsInterval())

	got = bins.Plan("len", rangeOf(5, 9), bins.Options{Name: "mine", Count: 1})
	assert.Equal(t, []string{"mine"}, names(got))
}

func TestUnboundedRangeIsSingleBin(t *testing.T) {
	ov := domain.Override{Kind: domain.OverrideRange, Low: domain.Finite(5), High: domain.PosInf}
	got := bins.Plan("len", ov, bins.Options{Split: 10, Count: 3})
	require.Len(t, got, 1)
	assert.Equal(t, "len_v5_$", got[0].Name)
	assert.Equal(t, domain.PosInf, got[0].High)

	ov = domain.Override{Kind: domain.OverrideRange, Low: domain.NegInf, High: domain.Finite(-2)}
	got = bins.Plan("len", ov, bins.Options{})
	assert.Equal(t, "len_vinf_n2", got[0].Name)
}

func TestListSingleValue(t *testing.T) {
	got := bins.Plan("mcs", listOf(7), bins.Options{})
	require.Len(t, got, 1)
	assert.Equal(t, "mcs_v7_7", got[0].Name)
	assert.Equal(t, []int64{7}, got[0].Values)
	assert.False(t, got[0].AutoArray)
}

func TestListSetPolicy(t *testing.T) {
	got := bins.Plan("mcs", listOf(9, 2, 5), bins.Options{})
	require.Len(t, got, 1)
	assert.Equal(t, "mcs_v2_9", got[0].Name)
	assert.Equal(t, []int64{9, 2, 5}, got[0].Values)
	assert.True(t, got[0].AutoArray)

	got = bins.Plan("mcs", listOf(9, 2, 5), bins.Options{Count: 2})
	assert.Equal(t, 2, got[0].Count)
	assert.False(t, got[0].AutoArray)
}

func TestListEachPolicy(t *testing.T) {
	got := bins.Plan("mcs", listOf(-1, 4), bins.Options{ListPolicy: bins.ListEach})
	assert.Equal(t, []string{"mcs_vn1_n1", "mcs_v4_4"}, names(got))
	for _, b := range got {
		assert.Len(t, b.Values, 1)
	}
}

func TestIndexNamingAppliesToEveryPiece(t *testing.T) {
	got := bins.Plan("mcs", listOf(3, 8), bins.Options{ListPolicy: bins.ListEach, Naming: bins.NamingIndex})
	assert.Equal(t, []string{"mcs_r1", "mcs_r2"}, names(got))

	got = bins.Plan("len", rangeOf(1, 10), bins.Options{Split: 5, Naming: bins.NamingIndex})
	assert.Equal(t, []string{"len_r1", "len_r2"}, names(got))
}

func TestCheckBinLimit(t *testing.T) {
	cases := []struct {
		name string
		ov   domain.Override
		opts bins.Options
		ok   bool
	}{
		{"split at limit", rangeOf(1, bins.MaxBins), bins.Options{Split: 1}, true},
		{"split above limit", rangeOf(0, 3_000_000), bins.Options{Split: 1}, false},
		{"full int64 range", domain.Override{Kind: domain.OverrideRange, Low: domain.Finite(-1 << 63), High: domain.Finite(1<<63 - 1)}, bins.Options{Split: 2}, false},
		{"count above limit", rangeOf(0, 1_000_000), bins.Options{Count: bins.MaxBins + 1}, false},
		{"count clipped by range", rangeOf(0, 9), bins.Options{Count: 1_000_000}, true},
		{"array count is one bin", rangeOf(0, 1_000_000), bins.Options{Count: 1_000_000, CountPolicy: bins.CountArray}, true},
		{"unbounded ignores split", domain.Override{Kind: domain.OverrideRange, Low: domain.Finite(0), High: domain.PosInf}, bins.Options{Split: 1}, true},
		{"list set", listOf(1, 2, 3), bins.Options{}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := bins.Check(tc.ov, tc.opts)
			if tc.ok {
				require.NoError(t, err)
				assert.LessOrEqual(t, len(bins.Plan("p", tc.ov, tc.opts)), bins.MaxBins)
				return
			}
			assert.ErrorIs(t, err, bins.ErrTooMany)
		})
	}
}

func TestDefaultName(t *testing.T) {
	assert.Equal(t, "p_v1_10", bins.DefaultName("p", domain.Finite(1), domain.Finite(10)))
	assert.Equal(t, "p_vinf_$", bins.DefaultName("p", domain.NegInf, domain.PosInf))
	assert.Equal(t, "p_vn9223372036854775808_0", bins.DefaultName("p", domain.Finite(-1<<63), domain.Finite(0)))
}

func TestDedupe(t *testing.T) {
	taken := map[string]bool{"a": true}
	got := bins.Dedupe([]bins.Bin{{Name: "a"}, {Name: "b"}, {Name: "a"}, {Name: "b"}}, taken)
	assert.Equal(t, []string{"a_2", "b", "a_3", "b_2"}, names(got))
	assert.True(t, taken["a_3"])
}
