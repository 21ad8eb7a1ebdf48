package hydrate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"caseform/internal/cascade"
	"caseform/internal/catalog"
	"caseform/internal/domain"
	"caseform/internal/form"
	"caseform/internal/reconcile"
	"caseform/internal/record"
	"caseform/internal/remote/mocks"
)

type staticSource struct {
	data catalog.Data
}

func (s staticSource) Load(context.Context) (catalog.Data, error) {
	return s.data, nil
}

type failingSource struct{}

func (failingSource) Load(context.Context) (catalog.Data, error) {
	return catalog.Data{}, errors.New("catalog service unavailable")
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

func testCollections() record.Collections {
	return record.Collections{
		Parties: reconcile.NewCollection(reconcile.Config[domain.ProceduralPart]{
			Name: "parties",
			Ref:  func(p domain.ProceduralPart) domain.EntityRef { return p.Ref },
			WithRef: func(p domain.ProceduralPart, ref domain.EntityRef) domain.ProceduralPart {
				p.Ref = ref
				return p
			},
			Match: domain.ProceduralPart.SameContent,
		}),
		Interveners: reconcile.NewCollection(reconcile.Config[domain.Intervener]{
			Name: "interveners",
			Ref:  func(i domain.Intervener) domain.EntityRef { return i.Ref },
			WithRef: func(i domain.Intervener, ref domain.EntityRef) domain.Intervener {
				i.Ref = ref
				return i
			},
			Match: domain.Intervener.SameContent,
		}),
		Payments: reconcile.NewCollection(reconcile.Config[domain.Payment]{
			Name: "payments",
			Ref:  func(p domain.Payment) domain.EntityRef { return p.Ref },
			WithRef: func(p domain.Payment, ref domain.EntityRef) domain.Payment {
				p.Ref = ref
				return p
			},
			Match: domain.Payment.SameContent,
		}),
		Documents: reconcile.NewCollection(reconcile.Config[domain.Document]{
			Name: "documents",
			Ref:  func(d domain.Document) domain.EntityRef { return d.Ref },
			WithRef: func(d domain.Document, ref domain.EntityRef) domain.Document {
				d.Ref = ref
				return d
			},
			Match: domain.Document.SameContent,
		}),
	}
}

func persistedRecord() *domain.Record {
	return &domain.Record{
		ID:             "CASE-7",
		ClientType:     "COMPANY",
		Department:     "Atlántico",
		City:           "Barranquilla",
		Jurisdiction:   "CIVIL",
		ProcessType:    "Proceso Ordinario",
		JudicialOffice: "Juzgado 1 Civil del Circuito de Barranquilla",
		CaseNumber:     "08001-31-03-001-2024-00123-00",
		Status:         "REGISTERED",
		CreatedAt:      time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Parts: []domain.ProceduralPart{
			{Ref: domain.PersistedRef("PART-1"), Role: domain.RolePlaintiff, Name: "Acme S.A.S."},
		},
		Payments: []domain.Payment{
			{Ref: domain.PersistedRef("PAY-1"), Value: 100},
		},
	}
}

type ControllerSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	records *mocks.MockRecordService
	state   *form.State
	cols    record.Collections
	orch    *record.Orchestrator
	con     *Controller
}

func (s *ControllerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.records = mocks.NewMockRecordService(s.ctrl)
	s.state = form.NewState()
	s.cols = testCollections()
	s.orch = record.NewOrchestrator(record.Config{
		State:       s.state,
		Records:     s.records,
		Collections: s.cols,
	})
	s.con = NewController(Config{
		State:        s.state,
		Records:      s.records,
		Catalog:      catalog.NewCache(staticSource{testData()}),
		Collections:  s.cols,
		Orchestrator: s.orch,
	})

	// Same wiring the session applies: field changes react through the
	// controller's resolver and the effects cascade back into the state.
	s.state.Subscribe(func(field form.Field, _, value string) {
		resolver := s.con.Resolver()
		if resolver == nil {
			return
		}
		cascade.Apply(s.state, resolver.React(s.state.Snapshot(), field, value))
	})
}

func (s *ControllerSuite) TestLoadSeedsEverything() {
	s.records.EXPECT().GetByID(gomock.Any(), domain.CaseID("CASE-7")).Return(persistedRecord(), nil)

	rec, err := s.con.Load(context.Background(), "CASE-7")

	require.NoError(s.T(), err)
	assert.Equal(s.T(), PhaseReady, s.con.Phase())
	assert.Equal(s.T(), "Barranquilla", s.state.Get(form.FieldCity))
	assert.Equal(s.T(), "Proceso Ordinario", s.state.Get(form.FieldProcessType))
	assert.Equal(s.T(), cascade.ModeInteractive, s.con.Resolver().Mode())
	assert.Equal(s.T(), 1, s.cols.Parties.Len())
	assert.Equal(s.T(), 1, s.cols.Payments.Len())
	assert.Equal(s.T(), rec.ID, s.orch.CaseID())

	// Option sets were populated from the seeded parents.
	assert.Equal(s.T(), []string{"Barranquilla", "Soledad"}, s.con.Resolver().Options(form.FieldCity))
}

func (s *ControllerSuite) TestLoadSameIdentityFetchesOnce() {
	s.records.EXPECT().GetByID(gomock.Any(), domain.CaseID("CASE-7")).Return(persistedRecord(), nil).Times(1)

	first, err := s.con.Load(context.Background(), "CASE-7")
	require.NoError(s.T(), err)
	second, err := s.con.Load(context.Background(), "CASE-7")
	require.NoError(s.T(), err)

	assert.Same(s.T(), first, second)
	assert.Equal(s.T(), "Barranquilla", s.state.Get(form.FieldCity),
		"second load clears nothing that was valid after the first")
}

func (s *ControllerSuite) TestStaleCitySurvivesLoadAndRefresh() {
	stale := persistedRecord()
	stale.City = "Puerto Colombia"
	stale.JudicialOffice = "Juzgado Promiscuo de Puerto Colombia"
	s.records.EXPECT().GetByID(gomock.Any(), domain.CaseID("CASE-7")).Return(stale, nil).Times(1)

	_, err := s.con.Load(context.Background(), "CASE-7")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "Puerto Colombia", s.state.Get(form.FieldCity),
		"hydration preserves the record's own historical value")

	refreshed := persistedRecord()
	refreshed.City = "Puerto Colombia"
	refreshed.JudicialOffice = "Juzgado Promiscuo de Puerto Colombia"
	s.records.EXPECT().GetByID(gomock.Any(), domain.CaseID("CASE-7")).Return(refreshed, nil)

	_, err = s.con.Refresh(context.Background())
	require.NoError(s.T(), err)
	assert.Equal(s.T(), PhaseReady, s.con.Phase(), "refresh never re-enters seeding")
	assert.Equal(s.T(), "Puerto Colombia", s.state.Get(form.FieldCity))

	// Interactive mode is armed: a manual department change clears the city.
	s.state.Set(form.FieldDepartment, "Antioquia")
	assert.Equal(s.T(), "", s.state.Get(form.FieldCity))
}

func (s *ControllerSuite) TestNewIdentityRestartsMachine() {
	s.records.EXPECT().GetByID(gomock.Any(), domain.CaseID("CASE-7")).Return(persistedRecord(), nil)
	other := persistedRecord()
	other.ID = "CASE-8"
	other.City = "Soledad"
	other.JudicialOffice = ""
	s.records.EXPECT().GetByID(gomock.Any(), domain.CaseID("CASE-8")).Return(other, nil)

	_, err := s.con.Load(context.Background(), "CASE-7")
	require.NoError(s.T(), err)
	_, err = s.con.Load(context.Background(), "CASE-8")
	require.NoError(s.T(), err)

	assert.Equal(s.T(), "Soledad", s.state.Get(form.FieldCity))
	assert.Equal(s.T(), domain.CaseID("CASE-8"), s.orch.CaseID())
}

func (s *ControllerSuite) TestLoadFailureResets() {
	s.records.EXPECT().GetByID(gomock.Any(), domain.CaseID("CASE-7")).
		Return(nil, context.DeadlineExceeded)

	_, err := s.con.Load(context.Background(), "CASE-7")

	require.Error(s.T(), err)
	assert.Equal(s.T(), PhaseUnloaded, s.con.Phase())
}

func (s *ControllerSuite) TestPrepareInstallsInteractiveResolver() {
	s.con.Prepare(context.Background())

	resolver := s.con.Resolver()
	require.NotNil(s.T(), resolver)
	assert.Equal(s.T(), cascade.ModeInteractive, resolver.Mode())
	assert.False(s.T(), s.con.CatalogDegraded())
	assert.Equal(s.T(), PhaseUnloaded, s.con.Phase(), "creation mode never loads")
}

func (s *ControllerSuite) TestPrepareDegradesWithoutCatalog() {
	s.con = NewController(Config{
		State:        s.state,
		Records:      s.records,
		Catalog:      catalog.NewCache(failingSource{}),
		Collections:  s.cols,
		Orchestrator: s.orch,
	})

	s.con.Prepare(context.Background())

	resolver := s.con.Resolver()
	require.NotNil(s.T(), resolver)
	assert.True(s.T(), s.con.CatalogDegraded())

	// Every lookup misses over the empty catalog: a department offers no city
	// options and a typed city flips the judicial office to manual entry.
	s.state.Set(form.FieldDepartment, "Atlántico")
	assert.Empty(s.T(), resolver.Options(form.FieldCity))
	s.state.Set(form.FieldCity, "Barranquilla")
	assert.True(s.T(), resolver.ManualOffice())
	assert.Equal(s.T(), "Barranquilla", s.state.Get(form.FieldCity),
		"typed values are kept, not cleared")
}

func TestControllerSuite(t *testing.T) {
	suite.Run(t, new(ControllerSuite))
}
