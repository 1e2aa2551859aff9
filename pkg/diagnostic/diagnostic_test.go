package diagnostic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiagnostics(t *testing.T) {
	d := &Diagnostics{}
	assert.False(t, d.HasErrors())

	d.AddInfo(CodeCycleDetected, "cycle", "example.com/shop.Node", "next")
	d.AddWarning(CodeTypeNotInIndex, "missing", "example.com/shop.Gone", "")
	d.AddError(CodeNameCollision, "collision", "", "")

	assert.True(t, d.HasErrors())
	all := d.All()
	assert.Len(t, all, 3)
	assert.Equal(t, Error, all[0].Severity)
	assert.Equal(t, Warning, all[1].Severity)
	assert.Equal(t, Info, all[2].Severity)

	cycles := d.ByCode(CodeCycleDetected)
	assert.Len(t, cycles, 1)
	assert.Equal(t, "next", cycles[0].Field)
}

func TestNilDiagnosticsDiscard(t *testing.T) {
	var d *Diagnostics
	d.AddError(CodeNameCollision, "collision", "", "")
	d.AddWarning(CodeTypeNotInIndex, "missing", "", "")
	d.Merge(&Diagnostics{Errors: []Diagnostic{{Code: CodeNameCollision}}})

	assert.False(t, d.HasErrors())
	assert.Nil(t, d.All())
	assert.Empty(t, d.ByCode(CodeNameCollision))
}

func TestMerge(t *testing.T) {
	d := &Diagnostics{}
	other := &Diagnostics{}
	other.AddWarning(CodeInvalidConstraint, "bad", "", "")
	d.Merge(other)
	d.Merge(nil)
	assert.Len(t, d.Warnings, 1)
}

func TestString(t *testing.T) {
	tests := []struct {
		name string
		d    Diagnostic
		want string
	}{
		{
			name: "message only",
			d:    Diagnostic{Severity: Warning, Code: CodeInvalidConstraint, Message: "bad pattern"},
			want: "[warning] INVALID_CONSTRAINT: bad pattern",
		},
		{
			name: "with type",
			d:    Diagnostic{Severity: Info, Code: CodeCycleDetected, Message: "cycle", Type: "shop.Node"},
			want: "[info] CYCLE_DETECTED: cycle (type shop.Node)",
		},
		{
			name: "with field",
			d:    Diagnostic{Severity: Error, Code: CodeNameCollision, Message: "taken", Type: "shop.Node", Field: "next"},
			want: "[error] NAME_COLLISION: taken (type shop.Node, field next)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.d.String())
		})
	}
	assert.Equal(t, "unknown", Severity(7).String())
}
