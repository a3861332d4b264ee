package approval

import (
	"slices"
	"testing"

	"gorm.io/datatypes"
)

func TestApproval_Eligible(t *testing.T) {
	strp := func(s string) *string { return &s }
	pool := datatypes.NewJSONType([]string{"bm1", "bm2", "bm3"})

	tests := []struct {
		name string
		a    Approval
		want []string
	}{
		{
			name: "single approver",
			a:    Approval{ApproverID: "bm1"},
			want: []string{"bm1"},
		},
		{
			name: "candidate pool",
			a:    Approval{ApproverID: "bm1", CandidateIDs: pool},
			want: []string{"bm1", "bm2", "bm3"},
		},
		{
			name: "delegated away from the nominal approver",
			a:    Approval{ApproverID: "bm1", CandidateIDs: pool, IsDelegated: true, DelegatedFromID: strp("bm1"), DelegatedToID: strp("fm1")},
			want: []string{"fm1", "bm2", "bm3"},
		},
		{
			name: "delegated to another candidate",
			a:    Approval{ApproverID: "bm1", CandidateIDs: pool, IsDelegated: true, DelegatedFromID: strp("bm1"), DelegatedToID: strp("bm2")},
			want: []string{"bm2", "bm3"},
		},
		{
			name: "escalated",
			a:    Approval{ApproverID: "bm1", CandidateIDs: pool, IsEscalated: true, EscalatedToID: strp("boss")},
			want: []string{"boss"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Eligible(); !slices.Equal(got, tt.want) {
				t.Fatalf("Eligible() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestApproval_CanAct(t *testing.T) {
	a := Approval{ApproverID: "bm1", CandidateIDs: datatypes.NewJSONType([]string{"bm1", "bm2"})}
	for _, user := range []string{"bm1", "bm2"} {
		if !a.CanAct(user) {
			t.Fatalf("%s should be able to act", user)
		}
	}
	for _, user := range []string{"", "bm3"} {
		if a.CanAct(user) {
			t.Fatalf("%q should not be able to act", user)
		}
	}
}
