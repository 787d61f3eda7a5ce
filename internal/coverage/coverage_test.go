package coverage_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"covgen/internal/bins"
	"covgen/internal/coverage"
	"covgen/internal/domain"
)

func TestConvertShorthand(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"covA{5} && covB{1,2,3}", "binsof(covA) intersect {5} && binsof(covB) intersect {1,2,3}"},
		{"cov_a{[1:4]}", "binsof(cov_a) intersect {[1:4]}"},
		{"!(cov_a{1} || cov_b{2})", "!(binsof(cov_a) intersect {1} || binsof(cov_b) intersect {2})"},
		{"  cov_a {7}  ", "binsof(cov_a) intersect {7}"},
		{"cov_a{[5:∞]} && cov_b{[-∞:0]}", "binsof(cov_a) intersect {[5:$]} && binsof(cov_b) intersect {[$:0]}"},
		{"cov_a{ +3 , [$:+∞] }", "binsof(cov_a) intersect {3,[$:$]}"},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := coverage.ConvertShorthand(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestConvertShorthandRejects(t *testing.T) {
	for _, in := range []string{
		"",
		"cov_a",
		"{1,2}",
		"cov_a{}",
		"cov_a{x}",
		"cov_a{1} & cov_b{2}",
		"cov_a{{1}}",
	} {
		_, err := coverage.ConvertShorthand(in)
		assert.ErrorIs(t, err, coverage.ErrCondition, "input %q", in)
	}
}

func TestShorthandRefs(t *testing.T) {
	refs, err := coverage.ShorthandRefs("cov_a{1} && (cov_b{2} || cov_a{3})")
	require.NoError(t, err)
	assert.Equal(t, []string{"cov_a", "cov_b", "cov_a"}, refs)
}

func TestSplitConditions(t *testing.T) {
	assert.Equal(t, []string{"a{1}", "b{2}"}, coverage.SplitConditions(" a{1} ; ;b{2};"))
	assert.Nil(t, coverage.SplitConditions("  "))
}

func TestNewCross(t *testing.T) {
	c, err := coverage.NewCross("x_len_mcs", []string{"cov_len", "cov_mcs"},
		[]string{"cov_len{1} && cov_mcs{0}", "cov_mcs{9}"}, []string{"cov_len{[50:60]}"})
	require.NoError(t, err)
	require.Len(t, c.Illegal, 2)
	assert.Equal(t, "x_len_mcs_illegal_1", c.Illegal[0].Name)
	assert.Equal(t, "x_len_mcs_illegal_2", c.Illegal[1].Name)
	assert.Equal(t, "binsof(cov_mcs) intersect {9}", c.Illegal[1].Expr)
	require.Len(t, c.Ignore, 1)
	assert.Equal(t, "x_len_mcs_ignore_1", c.Ignore[0].Name)
}

func TestNewCrossRejects(t *testing.T) {
	_, err := coverage.NewCross("1bad", []string{"a", "b"}, nil, nil)
	assert.ErrorIs(t, err, coverage.ErrCross)

	_, err = coverage.NewCross("x", []string{"a"}, nil, nil)
	assert.ErrorIs(t, err, coverage.ErrCross)

	_, err = coverage.NewCross("x", []string{"a", "a"}, nil, nil)
	assert.ErrorIs(t, err, coverage.ErrCross)

	_, err = coverage.NewCross("x", []string{"a", "b"}, []string{"c{1}"}, nil)
	assert.ErrorIs(t, err, coverage.ErrCondition)

	_, err = coverage.NewCross("x", []string{"a", "b"}, nil, []string{"a{"})
	assert.ErrorIs(t, err, coverage.ErrCondition)
}

func TestIdentifier(t *testing.T) {
	assert.Equal(t, "he_su", coverage.Identifier("HE-SU"))
	assert.Equal(t, "pkt_len", coverage.Identifier(" Pkt Len "))
	assert.Equal(t, "g_11ax", coverage.Identifier("11ax"))
	assert.Equal(t, "cov_pkt_len", coverage.CoverpointName("PKT_LEN"))
	assert.Equal(t, "cg_he_su", coverage.CovergroupName("HE_SU"))
	assert.Equal(t, "trigger_he_su_cov", coverage.EventName("HE_SU"))
}

func TestIsIdentifier(t *testing.T) {
	for _, s := range []string{"short", "_x", "len_v1_$", "A9"} {
		assert.True(t, coverage.IsIdentifier(s), s)
	}
	for _, s := range []string{"", "9a", "short pkts", "a;b", "x = {0}", "a-b"} {
		assert.False(t, coverage.IsIdentifier(s), s)
	}
}

func TestBinLine(t *testing.T) {
	iv := bins.Bin{Name: "len_v1_25", Low: domain.Finite(1), High: domain.Finite(25)}
	assert.Equal(t, "bins len_v1_25 = {[1:25]};", coverage.BinLine(iv))

	iv.Count = 4
	assert.Equal(t, "bins len_v1_25[4] = {[1:25]};", coverage.BinLine(iv))

	open := bins.Bin{Name: "len_vinf_$", Low: domain.NegInf, High: domain.PosInf}
	assert.Equal(t, "bins len_vinf_$ = {[$:$]};", coverage.BinLine(open))

	set := bins.Bin{Name: "mcs", Values: []int64{0, 1, -2}, AutoArray: true}
	assert.Equal(t, "bins mcs[] = {0,1,-2};", coverage.BinLine(set))
}

func TestEmitCoverpoint(t *testing.T) {
	cp := coverage.Coverpoint{
		Name:     "cov_len",
		Variable: "len",
		Bins:     bins.Plan("len", domain.Override{Kind: domain.OverrideRange, Low: domain.Finite(1), High: domain.Finite(10)}, bins.Options{Count: 2}),
	}
	got, err := coverage.EmitCoverpoint(cp)
	require.NoError(t, err)
	want := "    cov_len: coverpoint len {\n" +
		"        bins len_v1_5 = {[1:5]};\n" +
		"        bins len_v6_10 = {[6:10]};\n" +
		"    }"
	assert.Equal(t, want, got)

	_, err = coverage.EmitCoverpoint(coverage.Coverpoint{Name: "cov_x"})
	assert.ErrorIs(t, err, coverage.ErrEmptyCoverpoint)
}

func TestEmitCross(t *testing.T) {
	plain, err := coverage.NewCross("x1", []string{"cov_a", "cov_b"}, nil, nil)
	require.NoError(t, err)
	got, err := coverage.EmitCross(plain)
	require.NoError(t, err)
	assert.Equal(t, "    x1: cross cov_a, cov_b;", got)

	block, err := coverage.NewCross("x2", []string{"cov_a", "cov_b"}, []string{"cov_a{1}"}, []string{"cov_b{2,3}"})
	require.NoError(t, err)
	got, err = coverage.EmitCross(block)
	require.NoError(t, err)
	want := "    x2: cross cov_a, cov_b {\n" +
		"        illegal_bins x2_illegal_1 = (binsof(cov_a) intersect {1});\n" +
		"        ignore_bins x2_ignore_1 = (binsof(cov_b) intersect {2,3});\n" +
		"    }"
	assert.Equal(t, want, got)
}

func TestRenderClockModule(t *testing.T) {
	doc := &coverage.Document{
		Module:    "coverage_model",
		Variables: []string{"len"},
		Clock:     "clk",
		Groups: []coverage.Covergroup{{
			Name:       "cg_g1",
			Generation: "G1",
			Sample:     "@(posedge clk)",
			Coverpoints: []coverage.Coverpoint{{
				Name:     "cov_len",
				Variable: "len",
				Bins:     []bins.Bin{{Name: "len_v1_9", Low: domain.Finite(1), High: domain.Finite(9)}},
			}},
		}},
	}
	got, err := coverage.Render(doc)
	require.NoError(t, err)
	want := `module coverage_model;

// Variables
integer len;

// Clock
logic clk;

// G1 covergroup
covergroup cg_g1 @(posedge clk);
    cov_len: coverpoint len {
        bins len_v1_9 = {[1:9]};
    }
endgroup: cg_g1
cg_g1 cg_g1_inst = new();

endmodule: coverage_model
`
	assert.Equal(t, want, got)
}

func TestRenderEventModule(t *testing.T) {
	cross, err := coverage.NewCross("x", []string{"cov_a", "cov_b"}, nil, nil)
	require.NoError(t, err)
	one := []bins.Bin{{Name: "v", Values: []int64{1}}}
	doc := &coverage.Document{
		Module:    "m",
		Variables: []string{"a", "b", "sel"},
		Clock:     "clk",
		Events:    []string{"trigger_g1_cov", "trigger_g2_cov"},
		Groups: []coverage.Covergroup{
			{Name: "cg_g1", Generation: "G1", Sample: "@(trigger_g1_cov)",
				Coverpoints: []coverage.Coverpoint{{Name: "cov_a", Variable: "a", Bins: one}, {Name: "cov_b", Variable: "b", Bins: one}},
				Crosses:     []coverage.Cross{cross}},
			{Name: "cg_g2", Generation: "G2", Sample: "@(trigger_g2_cov)",
				Coverpoints: []coverage.Coverpoint{{Name: "cov_a", Variable: "a", Bins: one}}},
		},
		Selector: &coverage.Selector{Variable: "sel", Arms: []coverage.SelectorArm{
			{Value: 0, Event: "trigger_g1_cov"},
			{Value: 1, Event: "trigger_g2_cov"},
		}},
	}
	got, err := coverage.Render(doc)
	require.NoError(t, err)

	assert.Contains(t, got, "// Trigger events\nevent trigger_g1_cov;\nevent trigger_g2_cov;\n")
	assert.Contains(t, got, "covergroup cg_g1 @(trigger_g1_cov);\n")
	assert.Contains(t, got, "    }\n    x: cross cov_a, cov_b;\nendgroup: cg_g1\n")
	assert.Contains(t, got, "task run();\n    if (sel == 0) -> trigger_g1_cov;\n    if (sel == 1) -> trigger_g2_cov;\nendtask: run\n")
	assert.True(t, strings.HasSuffix(got, "endtask: run\n\nendmodule: m\n"))
	assert.Equal(t, 2, strings.Count(got, "endgroup:"))
	assert.Equal(t, strings.Count(got, "covergroup "), strings.Count(got, "endgroup:"))
}

func TestRenderRejectsEmptyCoverpoint(t *testing.T) {
	doc := &coverage.Document{Module: "m", Clock: "clk", Groups: []coverage.Covergroup{{
		Name: "cg", Sample: "@(posedge clk)",
		Coverpoints: []coverage.Coverpoint{{Name: "cov_a", Variable: "a"}},
	}}}
	_, err := coverage.Render(doc)
	assert.ErrorIs(t, err, coverage.ErrEmptyCoverpoint)
	_, err = coverage.Render(nil)
	assert.Error(t, err)
}
