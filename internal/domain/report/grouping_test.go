package report

import (
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/dermtriage/dermtriage/internal/domain/identity"
)

func testLookup(profiles ...*identity.PatientProfile) ProfileLookup {
	byID := make(map[uuid.UUID]*identity.PatientProfile)
	for _, p := range profiles {
		byID[p.ID] = p
	}
	return func(id uuid.UUID) (*identity.PatientProfile, bool) {
		p, ok := byID[id]
		return p, ok
	}
}

func testReport(patientID uuid.UUID, status string, createdAt time.Time) *Report {
	return &Report{
		ID:        uuid.New(),
		PatientID: patientID,
		Status:    status,
		CreatedAt: createdAt,
	}
}

func TestBuildPatientGroups(t *testing.T) {
	base := time.Date(2026, time.January, 10, 12, 0, 0, 0, time.UTC)
	alice := &identity.PatientProfile{ID: uuid.New(), FullName: "Alice"}
	bob := &identity.PatientProfile{ID: uuid.New(), FullName: "Bob"}

	// Bob has the newest activity and should float to the top.
	aliceOld := testReport(alice.ID, StatusDoctorApproved, base)
	aliceNew := testReport(alice.ID, StatusPendingDoctorReview, base.Add(time.Hour))
	bobNew := testReport(bob.ID, StatusPendingDoctorReview, base.Add(2*time.Hour))

	groups := BuildPatientGroups([]*Report{aliceOld, bobNew, aliceNew}, testLookup(alice, bob))

	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2", len(groups))
	}
	if groups[0].Patient.ID != bob.ID {
		t.Errorf("group[0] = %s, want Bob first (newest activity)", groups[0].Patient.FullName)
	}

	ag := groups[1]
	if ag.UnreadCount != 1 {
		t.Errorf("Alice UnreadCount = %d, want 1", ag.UnreadCount)
	}
	if !ag.LastUpdate.Equal(aliceNew.CreatedAt) {
		t.Errorf("Alice LastUpdate = %v, want %v", ag.LastUpdate, aliceNew.CreatedAt)
	}
	if ag.Reports[0].ID != aliceNew.ID || ag.Reports[1].ID != aliceOld.ID {
		t.Error("Alice reports not in most-recent-first order")
	}
}

func TestBuildPatientGroupsDropsUnresolvedProfiles(t *testing.T) {
	known := &identity.PatientProfile{ID: uuid.New(), FullName: "Known"}
	now := time.Now()

	reports := []*Report{
		testReport(known.ID, StatusPendingDoctorReview, now),
		testReport(uuid.New(), StatusPendingDoctorReview, now.Add(time.Hour)),
	}

	groups := BuildPatientGroups(reports, testLookup(known))
	if len(groups) != 1 {
		t.Fatalf("got %d groups, want 1 (unresolved patient dropped)", len(groups))
	}
	if groups[0].Patient.ID != known.ID {
		t.Error("remaining group should belong to the resolvable patient")
	}
}

func TestBuildPatientGroupsEmptyInput(t *testing.T) {
	groups := BuildPatientGroups(nil, testLookup())
	if len(groups) != 0 {
		t.Errorf("got %d groups for empty input, want 0", len(groups))
	}
}

func TestBuildPatientGroupsIdempotent(t *testing.T) {
	base := time.Now().Truncate(time.Second)
	var profiles []*identity.PatientProfile
	var reports []*Report
	for i := 0; i < 5; i++ {
		p := &identity.PatientProfile{ID: uuid.New(), FullName: "P"}
		profiles = append(profiles, p)
		for j := 0; j < 3; j++ {
			reports = append(reports, testReport(p.ID, StatusPendingDoctorReview, base.Add(time.Duration(j)*time.Minute)))
		}
	}
	lookup := testLookup(profiles...)

	first := BuildPatientGroups(reports, lookup)
	second := BuildPatientGroups(reports, lookup)
	if !reflect.DeepEqual(first, second) {
		t.Error("grouping is not idempotent over an unchanged snapshot")
	}
}

func TestBuildPatientGroupsTieBreakByID(t *testing.T) {
	p := &identity.PatientProfile{ID: uuid.New(), FullName: "P"}
	at := time.Now().Truncate(time.Second)

	a := testReport(p.ID, StatusPendingDoctorReview, at)
	b := testReport(p.ID, StatusPendingDoctorReview, at)

	// Equal timestamps sort by id, so input order never affects output order.
	g1 := BuildPatientGroups([]*Report{a, b}, testLookup(p))
	g2 := BuildPatientGroups([]*Report{b, a}, testLookup(p))

	order1 := [2]uuid.UUID{g1[0].Reports[0].ID, g1[0].Reports[1].ID}
	order2 := [2]uuid.UUID{g2[0].Reports[0].ID, g2[0].Reports[1].ID}
	if order1 != order2 {
		t.Errorf("tie-break not deterministic: %v vs %v", order1, order2)
	}
	if order1[0].String() > order1[1].String() {
		t.Error("equal timestamps should sort ascending by id")
	}
}

func TestBuildPatientGroupsScenarioTwoPendingReports(t *testing.T) {
	doctor := uuid.New()
	p := &identity.PatientProfile{ID: uuid.New(), FullName: "P"}
	t1 := time.Date(2026, time.February, 1, 9, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	r1 := testReport(p.ID, StatusPendingDoctorReview, t1)
	r2 := testReport(p.ID, StatusPendingDoctorReview, t2)
	r1.DoctorID = &doctor
	r2.DoctorID = &doctor

	groups := BuildPatientGroups([]*Report{r1, r2}, testLookup(p))
	if len(groups) != 1 {
		t.Fatalf("got %d groups, want 1", len(groups))
	}
	g := groups[0]
	if g.UnreadCount != 2 {
		t.Errorf("UnreadCount = %d, want 2", g.UnreadCount)
	}
	if !g.LastUpdate.Equal(t2) {
		t.Errorf("LastUpdate = %v, want %v", g.LastUpdate, t2)
	}
	if g.Reports[0].ID != r2.ID || g.Reports[1].ID != r1.ID {
		t.Error("reports should be ordered [t2, t1]")
	}
}
