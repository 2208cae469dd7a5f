package domain

// EncounterType is the classification tag assigned to an encounter by the AI model.
// Only values in the closed vocabulary below are accepted.
type EncounterType string

// Real-world visits.
const (
	EncounterInpatient              EncounterType = "inpatient"
	EncounterOutpatient             EncounterType = "outpatient"
	EncounterEmergencyDepartment    EncounterType = "emergency_department"
	EncounterSpecialistConsultation EncounterType = "specialist_consultation"
	EncounterGPAppointment          EncounterType = "gp_appointment"
	EncounterTelehealth             EncounterType = "telehealth"
)

// Planned future encounters.
const (
	EncounterPlannedSpecialistConsultation EncounterType = "planned_specialist_consultation"
	EncounterPlannedProcedure              EncounterType = "planned_procedure"
	EncounterPlannedGPAppointment          EncounterType = "planned_gp_appointment"
)

// Pseudo-encounters: document segments that are not timeline-worthy visits.
const (
	EncounterPseudoMedicationList  EncounterType = "pseudo_medication_list"
	EncounterPseudoLabReport       EncounterType = "pseudo_lab_report"
	EncounterPseudoImagingReport   EncounterType = "pseudo_imaging_report"
	EncounterPseudoReferralLetter  EncounterType = "pseudo_referral_letter"
	EncounterPseudoInsurance       EncounterType = "pseudo_insurance"
	EncounterPseudoAdminSummary    EncounterType = "pseudo_admin_summary"
	EncounterPseudoUnverifiedVisit EncounterType = "pseudo_unverified_visit"
)

// EncounterFamily partitions the vocabulary.
type EncounterFamily string

const (
	FamilyRealWorld EncounterFamily = "real_world"
	FamilyPlanned   EncounterFamily = "planned"
	FamilyPseudo    EncounterFamily = "pseudo"
)

var encounterTypeOrder = []EncounterType{
	EncounterInpatient,
	EncounterOutpatient,
	EncounterEmergencyDepartment,
	EncounterSpecialistConsultation,
	EncounterGPAppointment,
	EncounterTelehealth,
	EncounterPlannedSpecialistConsultation,
	EncounterPlannedProcedure,
	EncounterPlannedGPAppointment,
	EncounterPseudoMedicationList,
	EncounterPseudoLabReport,
	EncounterPseudoImagingReport,
	EncounterPseudoReferralLetter,
	EncounterPseudoInsurance,
	EncounterPseudoAdminSummary,
	EncounterPseudoUnverifiedVisit,
}

// encounterFamilies maps every vocabulary member to its family.
var encounterFamilies = map[EncounterType]EncounterFamily{
	EncounterInpatient:              FamilyRealWorld,
	EncounterOutpatient:             FamilyRealWorld,
	EncounterEmergencyDepartment:    FamilyRealWorld,
	EncounterSpecialistConsultation: FamilyRealWorld,
	EncounterGPAppointment:          FamilyRealWorld,
	EncounterTelehealth:             FamilyRealWorld,

	EncounterPlannedSpecialistConsultation: FamilyPlanned,
	EncounterPlannedProcedure:              FamilyPlanned,
	EncounterPlannedGPAppointment:          FamilyPlanned,

	EncounterPseudoMedicationList:  FamilyPseudo,
	EncounterPseudoLabReport:       FamilyPseudo,
	EncounterPseudoImagingReport:   FamilyPseudo,
	EncounterPseudoReferralLetter:  FamilyPseudo,
	EncounterPseudoInsurance:       FamilyPseudo,
	EncounterPseudoAdminSummary:    FamilyPseudo,
	EncounterPseudoUnverifiedVisit: FamilyPseudo,
}

// ValidEncounterTypes returns the full vocabulary, real-world first, then planned, then pseudo.
func ValidEncounterTypes() []EncounterType {
	out := make([]EncounterType, len(encounterTypeOrder))
	copy(out, encounterTypeOrder)
	return out
}

// IsValid reports whether t is part of the closed vocabulary.
func (t EncounterType) IsValid() bool {
	_, ok := encounterFamilies[t]
	return ok
}

// Family returns the vocabulary family of t, or "" for unknown values.
func (t EncounterType) Family() EncounterFamily {
	return encounterFamilies[t]
}

// DiagnosticKind classifies a non-fatal repair or data-loss condition.
type DiagnosticKind string

const (
	DiagnosticMissingRangeEnd     DiagnosticKind = "missing_range_end"
	DiagnosticInvertedRange       DiagnosticKind = "inverted_range"
	DiagnosticUnparseableDate     DiagnosticKind = "unparseable_date"
	DiagnosticMissingPageGeometry DiagnosticKind = "missing_page_geometry"
)

// RegionEntirePage is the only spatial region produced; sub-page detection is not performed.
const RegionEntirePage = "entire_page"

// DefaultMaxPage bounds page numbers accepted from the model when no limit is configured.
const DefaultMaxPage = 5000
