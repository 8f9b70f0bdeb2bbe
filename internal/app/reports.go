package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tenacious60/aquahealthmonitor/pkg/waterhealth"
)

// Validation errors for report submission.
var (
	ErrBadSourceType = errors.New("unknown water source type")
	ErrBadTurbidity  = errors.New("unknown turbidity level")
	ErrBadTestMethod = errors.New("unknown test method")
	ErrBadPH         = errors.New("ph reading out of range")
	ErrEmptyField    = errors.New("required field is empty")
)

// ReportStore submits water tests and patient reports and reads back
// submission history and training progress.
type ReportStore struct {
	gw      Gateway
	session Session
	logger  *slog.Logger
}

// NewReportStore creates a report store.
func NewReportStore(gw Gateway, session Session, logger *slog.Logger) (*ReportStore, error) {
	if gw == nil {
		return nil, errors.New("gateway cannot be nil")
	}
	if session == nil {
		return nil, errors.New("session cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	return &ReportStore{gw: gw, session: session, logger: logger}, nil
}

// SubmitWaterTest validates and stores a water test, returning the stored
// record with its server-assigned fields.
func (s *ReportStore) SubmitWaterTest(ctx context.Context, test waterhealth.WaterTest) (*waterhealth.WaterTest, error) {
	if s.session.CurrentUser() == nil {
		return nil, ErrNotSignedIn
	}
	if err := validateWaterTest(test); err != nil {
		return nil, err
	}

	record := Row{
		"source_name": test.SourceName,
		"source_type": test.SourceType,
		"test_method": test.TestMethod,
		"ph":          test.PH,
		"turbidity":   string(test.Turbidity),
		"bacteria":    test.Bacteria,
	}
	if test.Latitude != 0 || test.Longitude != 0 {
		record["latitude"] = test.Latitude
		record["longitude"] = test.Longitude
	}
	if test.PhotoURL != "" {
		record["photo_url"] = test.PhotoURL
	}

	row, err := s.gw.Insert(ctx, "water_tests", record)
	if err != nil {
		return nil, fmt.Errorf("water test submission failed: %w", err)
	}

	var stored waterhealth.WaterTest
	if err := decodeRow(row, &stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

func validateWaterTest(test waterhealth.WaterTest) error {
	if test.SourceName == "" {
		return fmt.Errorf("%w: source_name", ErrEmptyField)
	}
	if !contains(waterhealth.SourceTypes, test.SourceType) {
		return fmt.Errorf("%w: %q", ErrBadSourceType, test.SourceType)
	}
	if test.TestMethod != waterhealth.TestMethodManual && test.TestMethod != waterhealth.TestMethodSensor {
		return fmt.Errorf("%w: %q", ErrBadTestMethod, test.TestMethod)
	}
	if !test.Turbidity.Valid() {
		return fmt.Errorf("%w: %q", ErrBadTurbidity, test.Turbidity)
	}
	if test.PH < 0 || test.PH > 14 {
		return fmt.Errorf("%w: %v", ErrBadPH, test.PH)
	}
	if test.Bacteria != "yes" && test.Bacteria != "no" {
		return fmt.Errorf("%w: bacteria", ErrEmptyField)
	}
	return nil
}

// WaterTests returns the user's submitted tests, newest first.
func (s *ReportStore) WaterTests(ctx context.Context, limit int) ([]waterhealth.WaterTest, error) {
	if s.session.CurrentUser() == nil {
		return nil, nil
	}

	rows, err := s.gw.Select(ctx, "water_tests", SelectQuery{
		OrderBy:    "created_at",
		Descending: true,
		Limit:      limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch water tests: %w", err)
	}
	return decodeRows[waterhealth.WaterTest](rows)
}

// SubmitPatientReport validates and stores a patient case report.
func (s *ReportStore) SubmitPatientReport(ctx context.Context, report waterhealth.PatientReport) (*waterhealth.PatientReport, error) {
	if s.session.CurrentUser() == nil {
		return nil, ErrNotSignedIn
	}
	if report.PatientName == "" {
		return nil, fmt.Errorf("%w: patient_name", ErrEmptyField)
	}
	if len(report.Symptoms) == 0 && report.OtherSymptoms == "" {
		return nil, fmt.Errorf("%w: symptoms", ErrEmptyField)
	}
	for _, symptom := range report.Symptoms {
		if !contains(waterhealth.Symptoms, symptom) {
			return nil, fmt.Errorf("unknown symptom %q", symptom)
		}
	}

	record := Row{
		"patient_name": report.PatientName,
		"age":          report.Age,
		"gender":       report.Gender,
		"symptoms":     report.Symptoms,
		"severity":     report.Severity,
		"village":      report.Village,
	}
	if report.OtherSymptoms != "" {
		record["other_symptoms"] = report.OtherSymptoms
	}

	row, err := s.gw.Insert(ctx, "patient_reports", record)
	if err != nil {
		return nil, fmt.Errorf("patient report submission failed: %w", err)
	}

	var stored waterhealth.PatientReport
	if err := decodeRow(normalizeSymptoms(row), &stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

// PatientReports returns the user's submitted reports, newest first.
func (s *ReportStore) PatientReports(ctx context.Context, limit int) ([]waterhealth.PatientReport, error) {
	if s.session.CurrentUser() == nil {
		return nil, nil
	}

	rows, err := s.gw.Select(ctx, "patient_reports", SelectQuery{
		OrderBy:    "created_at",
		Descending: true,
		Limit:      limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch patient reports: %w", err)
	}
	for i, row := range rows {
		rows[i] = normalizeSymptoms(row)
	}
	return decodeRows[waterhealth.PatientReport](rows)
}

// normalizeSymptoms re-inflates the symptoms list, which the gateway stores
// serialized in a text column and returns as a JSON string.
func normalizeSymptoms(row Row) Row {
	raw, ok := row["symptoms"].(string)
	if !ok {
		return row
	}
	out := copyRow(row)
	var symptoms []string
	if err := json.Unmarshal([]byte(raw), &symptoms); err != nil {
		out["symptoms"] = []string{}
		return out
	}
	out["symptoms"] = symptoms
	return out
}

// TrainingModules returns the training catalog.
func (s *ReportStore) TrainingModules(ctx context.Context) ([]waterhealth.TrainingModule, error) {
	rows, err := s.gw.Select(ctx, "training_modules", SelectQuery{OrderBy: "title"})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch training modules: %w", err)
	}
	return decodeRows[waterhealth.TrainingModule](rows)
}

// TrainingProgress returns the user's progress rows keyed by module id.
func (s *ReportStore) TrainingProgress(ctx context.Context) (map[string]waterhealth.TrainingProgress, error) {
	if s.session.CurrentUser() == nil {
		return nil, nil
	}

	rows, err := s.gw.Select(ctx, "training_progress", SelectQuery{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch training progress: %w", err)
	}
	records, err := decodeRows[waterhealth.TrainingProgress](rows)
	if err != nil {
		return nil, err
	}

	out := make(map[string]waterhealth.TrainingProgress, len(records))
	for _, record := range records {
		out[record.ModuleID] = record
	}
	return out, nil
}

// RecordTrainingProgress upserts the user's progress for one module.
// Progress never moves backward; a lower percent than the stored one is
// kept as-is.
func (s *ReportStore) RecordTrainingProgress(ctx context.Context, moduleID string, percent int) error {
	if s.session.CurrentUser() == nil {
		return ErrNotSignedIn
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	existing, err := s.gw.Select(ctx, "training_progress", SelectQuery{
		Filter: Row{"module_id": moduleID},
		Limit:  1,
	})
	if err != nil {
		return fmt.Errorf("failed to check training progress: %w", err)
	}

	completed := percent == 100
	if len(existing) == 0 {
		_, err = s.gw.Insert(ctx, "training_progress", Row{
			"module_id": moduleID,
			"percent":   percent,
			"completed": completed,
		})
		if err != nil {
			return fmt.Errorf("failed to record training progress: %w", err)
		}
		return nil
	}

	var current waterhealth.TrainingProgress
	if err := decodeRow(existing[0], &current); err != nil {
		return err
	}
	if percent <= current.Percent {
		return nil
	}

	_, err = s.gw.Update(ctx, "training_progress", UpdateRequest{
		Filter:  Row{"module_id": moduleID},
		Changes: Row{"percent": percent, "completed": completed},
	})
	if err != nil {
		return fmt.Errorf("failed to record training progress: %w", err)
	}
	return nil
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
