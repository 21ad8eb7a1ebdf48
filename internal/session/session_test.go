package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"caseform/internal/audit"
	"caseform/internal/catalog"
	"caseform/internal/domain"
	"caseform/internal/form"
	"caseform/internal/record"
	"caseform/internal/remote"
	"caseform/pkg/sentinel"
)

type staticSource struct {
	data catalog.Data
}

func (s staticSource) Load(context.Context) (catalog.Data, error) {
	return s.data, nil
}

func testData() catalog.Data {
	return catalog.Data{
		Departments: []catalog.Department{
			{Name: "Atlántico", Cities: []string{"Barranquilla", "Soledad"}},
			{Name: "Antioquia", Cities: []string{"Medellín"}},
		},
		Offices: []catalog.JudicialOffice{
			{Code: "080013103001", Name: "Juzgado 1 Civil del Circuito de Barranquilla", City: "Barranquilla"},
		},
		Jurisdictions: []catalog.Jurisdiction{
			{Key: "CIVIL", Name: "Jurisdicción Civil", ProcessTypes: []catalog.ProcessType{
				{Key: "ORDINARIO", Name: "Proceso Ordinario"},
			}},
		},
	}
}

type SessionSuite struct {
	suite.Suite
	backend *remote.Memory
	store   *audit.InMemoryStore
	manager *Manager
	sess    *Session
}

func (s *SessionSuite) SetupTest() {
	s.backend = remote.NewMemory()
	s.store = audit.NewInMemoryStore()
	s.manager = NewManager(ManagerConfig{
		Services: s.backend.Services(),
		Catalog:  catalog.NewCache(staticSource{testData()}),
		Audit:    audit.NewPublisher(s.store),
	})
	s.sess = s.manager.Open(context.Background())
	s.sess.Prepare(context.Background())
}

func (s *SessionSuite) fillForm() {
	s.sess.State.Set(form.FieldClientType, "COMPANY")
	s.sess.State.Set(form.FieldDepartment, "Atlántico")
	s.sess.State.Set(form.FieldCity, "Barranquilla")
	s.sess.State.Set(form.FieldJurisdiction, "CIVIL")
	s.sess.State.Set(form.FieldProcessType, "Proceso Ordinario")
	s.sess.State.Set(form.FieldJudicialOffice, "Juzgado 1 Civil del Circuito de Barranquilla")
	s.sess.State.Set(form.FieldCaseNumber, "08001-31-03-001-2024-00123-00")
}

func (s *SessionSuite) TestCreationFlow() {
	ctx := context.Background()
	s.fillForm()
	s.sess.Collections.Payments.Add(domain.Payment{Value: 100})
	s.sess.Collections.Payments.Add(domain.Payment{Value: 200})

	rec, err := s.sess.CreateCase(ctx)

	require.NoError(s.T(), err)
	assert.False(s.T(), rec.IsDraft())
	require.Len(s.T(), rec.Payments, 2)
	assert.True(s.T(), rec.Payments[0].Ref.IsPersisted())
	require.Len(s.T(), rec.Documents, 1)
	assert.True(s.T(), rec.Documents[0].SystemGenerated)

	assert.Zero(s.T(), s.sess.Collections.Payments.Len(), "authority moved server-side")

	events, err := s.store.ListByCase(ctx, rec.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), events, 1)
	assert.Equal(s.T(), audit.ActionCaseCreated, events[0].Action)
	assert.Equal(s.T(), s.sess.ID.String(), events[0].SessionID)
}

func (s *SessionSuite) TestCascadeNoticeSurfaces() {
	s.sess.State.Set(form.FieldDepartment, "Atlántico")
	s.sess.State.Set(form.FieldCity, "Barranquilla")

	s.sess.State.Set(form.FieldDepartment, "Antioquia")

	notices := s.sess.Notices()
	require.Len(s.T(), notices, 1)
	assert.Equal(s.T(), form.FieldCity, notices[0].Field)
	assert.Empty(s.T(), s.sess.Notices(), "notices drain on read")
	assert.Equal(s.T(), "", s.sess.State.Get(form.FieldCity))
}

func (s *SessionSuite) TestEditFlowCommitsSection() {
	ctx := context.Background()
	s.fillForm()
	created, err := s.sess.CreateCase(ctx)
	require.NoError(s.T(), err)

	// A second session edits the persisted case, the way the UI reopens it.
	editor := s.manager.Open(ctx)
	_, err = editor.Hydrate(ctx, created.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "Barranquilla", editor.State.Get(form.FieldCity))

	editor.Collections.Parties.Add(domain.ProceduralPart{
		Role: domain.RolePlaintiff, Name: "Acme S.A.S.", DocumentType: "NIT", DocumentNumber: "900123",
	})
	outcome, err := editor.Commit(ctx, record.SectionParties)

	require.NoError(s.T(), err)
	assert.NoError(s.T(), outcome.Err())
	assert.Equal(s.T(), 1, outcome.Succeeded())
	assert.NoError(s.T(), outcome.RefreshErr)

	// The refresh replaced the collection with the authoritative copy.
	items := editor.Collections.Parties.Items()
	require.Len(s.T(), items, 1)
	assert.True(s.T(), items[0].Ref.IsPersisted())
}

// flakyPartyService fails creates for the configured names and delegates
// everything else.
type flakyPartyService struct {
	remote.PartyService
	failNames map[string]bool
}

func (f flakyPartyService) Create(ctx context.Context, caseID domain.CaseID, part domain.ProceduralPart) (string, error) {
	if f.failNames[part.Name] {
		return "", sentinel.ErrUnavailable
	}
	return f.PartyService.Create(ctx, caseID, part)
}

func (s *SessionSuite) TestCommitPartialFailureKeepsDraftAfterRefresh() {
	ctx := context.Background()
	s.fillForm()
	created, err := s.sess.CreateCase(ctx)
	require.NoError(s.T(), err)

	services := s.backend.Services()
	services.Parties = flakyPartyService{
		PartyService: services.Parties,
		failNames:    map[string]bool{"Beta Ltda.": true},
	}
	flaky := NewManager(ManagerConfig{
		Services: services,
		Catalog:  catalog.NewCache(staticSource{testData()}),
		Audit:    audit.NewPublisher(s.store),
	})

	editor := flaky.Open(ctx)
	_, err = editor.Hydrate(ctx, created.ID)
	require.NoError(s.T(), err)

	editor.Collections.Parties.Add(domain.ProceduralPart{
		Role: domain.RolePlaintiff, Name: "Acme S.A.S.", DocumentType: "NIT", DocumentNumber: "900123",
	})
	editor.Collections.Parties.Add(domain.ProceduralPart{
		Role: domain.RoleDefendant, Name: "Beta Ltda.", DocumentType: "NIT", DocumentNumber: "900456",
	})

	outcome, err := editor.Commit(ctx, record.SectionParties)

	require.NoError(s.T(), err)
	assert.Equal(s.T(), 1, outcome.Succeeded())
	assert.Equal(s.T(), 1, outcome.Failed())
	assert.NoError(s.T(), outcome.RefreshErr)

	// The post-batch refresh installs the server copy but the failed item
	// stays a draft, so a second commit can retry it.
	drafts := editor.Collections.Parties.Drafts()
	require.Len(s.T(), drafts, 1)
	assert.Equal(s.T(), "Beta Ltda.", drafts[0].Name)
	require.Len(s.T(), editor.Collections.Parties.Items(), 2)
}

func (s *SessionSuite) TestSaveGeneralKeepsChildDrafts() {
	ctx := context.Background()
	s.fillForm()
	created, err := s.sess.CreateCase(ctx)
	require.NoError(s.T(), err)

	editor := s.manager.Open(ctx)
	_, err = editor.Hydrate(ctx, created.ID)
	require.NoError(s.T(), err)

	draft := editor.Collections.Parties.Add(domain.ProceduralPart{
		Role: domain.RolePlaintiff, Name: "Acme S.A.S.", DocumentType: "NIT", DocumentNumber: "900123",
	})

	editor.State.Set(form.FieldCity, "Soledad")
	_, err = editor.SaveGeneral(ctx)
	require.NoError(s.T(), err)

	drafts := editor.Collections.Parties.Drafts()
	require.Len(s.T(), drafts, 1)
	assert.Equal(s.T(), draft.Ref, drafts[0].Ref, "a general-info save leaves child drafts alone")
}

func (s *SessionSuite) TestSaveGeneralAppliesAuthoritativeCopy() {
	ctx := context.Background()
	s.fillForm()
	created, err := s.sess.CreateCase(ctx)
	require.NoError(s.T(), err)

	editor := s.manager.Open(ctx)
	_, err = editor.Hydrate(ctx, created.ID)
	require.NoError(s.T(), err)

	editor.State.Set(form.FieldCity, "Soledad")
	rec, err := editor.SaveGeneral(ctx)

	require.NoError(s.T(), err)
	assert.Equal(s.T(), "Soledad", rec.City)
	assert.Equal(s.T(), "Soledad", editor.State.Get(form.FieldCity))
}

func (s *SessionSuite) TestSaveActionRefreshesStatus() {
	ctx := context.Background()
	s.fillForm()
	created, err := s.sess.CreateCase(ctx)
	require.NoError(s.T(), err)

	editor := s.manager.Open(ctx)
	_, err = editor.Hydrate(ctx, created.ID)
	require.NoError(s.T(), err)

	err = editor.SaveAction(ctx, domain.ProceduralAction{TargetStatus: "IN_PROGRESS", Observation: "audiencia fijada"})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "IN_PROGRESS", editor.Hydration.Current().Status)

	// Repeating the same target status is an illegal transition.
	err = editor.SaveAction(ctx, domain.ProceduralAction{TargetStatus: "IN_PROGRESS"})
	assert.ErrorIs(s.T(), err, remote.ErrIllegalTransition)
}

func (s *SessionSuite) TestManagerLifecycle() {
	ctx := context.Background()
	assert.Equal(s.T(), 1, s.manager.Len())

	got, err := s.manager.Get(s.sess.ID)
	require.NoError(s.T(), err)
	assert.Same(s.T(), s.sess, got)

	s.manager.Close(ctx, s.sess.ID)
	assert.Zero(s.T(), s.manager.Len())

	_, err = s.manager.Get(s.sess.ID)
	assert.ErrorIs(s.T(), err, sentinel.ErrNotFound)
}

func TestSessionSuite(t *testing.T) {
	suite.Run(t, new(SessionSuite))
}
