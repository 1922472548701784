package rules

import (
	mq "github.com/gofhir/miiquality"
	"github.com/gofhir/miiquality/bundle"
)

var (
	person     = []mq.Module{mq.ModulePerson}
	fall       = []mq.Module{mq.ModuleFall}
	diagnose   = []mq.Module{mq.ModuleDiagnose}
	medikation = []mq.Module{mq.ModuleMedikation}

	patientKind     = []bundle.Kind{bundle.KindPatient}
	encounterKind   = []bundle.Kind{bundle.KindEncounter}
	conditionKind   = []bundle.Kind{bundle.KindCondition}
	medicationKind  = []bundle.Kind{bundle.KindMedication}
	medicationUsage = []bundle.Kind{
		bundle.KindMedicationRequest,
		bundle.KindMedicationStatement,
		bundle.KindMedicationAdministration,
	}
)

// DefaultRules returns the built-in MII Kerndatensatz rules in catalog
// order. Each call returns fresh values.
func DefaultRules() []*Rule {
	return []*Rule{
		// Bundle
		{
			ID: "bundle-type", Category: mq.CategoryStructure, Scope: ScopeBundle,
			Severity:    mq.SeverityWarning,
			Description: "Bundle.type is transaction, collection, batch, document or message",
			Check:       checkBundleType,
		},
		{
			ID: "bundle-mii-profiles", Category: mq.CategoryStructure, Scope: ScopeBundle,
			Severity:    mq.SeverityWarning,
			Description: "at least one resource declares an MII profile",
			Check:       checkBundleMIIProfiles,
		},
		{
			ID: "bundle-unique-ids", Category: mq.CategoryStructure, Scope: ScopeBundle,
			Severity:    mq.SeverityError,
			Description: "no two entries share resourceType and id",
			Check:       checkBundleUniqueIDs,
		},

		// Profiles
		{
			ID: "person-profile", Category: mq.CategoryProfile, Modules: person,
			Severity:    mq.SeverityWarning,
			Description: "Person resources declare the modul-person profile",
			Check:       DeclaresProfile(mq.ModulePerson),
		},
		{
			ID: "fall-profile", Category: mq.CategoryProfile, Modules: fall,
			Severity:    mq.SeverityWarning,
			Description: "Fall resources declare the modul-fall profile",
			Check:       DeclaresProfile(mq.ModuleFall),
		},
		{
			ID: "diagnose-profile", Category: mq.CategoryProfile, Modules: diagnose,
			Severity:    mq.SeverityWarning,
			Description: "Diagnose resources declare the modul-diagnose profile",
			Check:       DeclaresProfile(mq.ModuleDiagnose),
		},
		{
			ID: "medikation-profile", Category: mq.CategoryProfile, Modules: medikation,
			Severity:    mq.SeverityWarning,
			Description: "Medikation resources declare the modul-medikation profile",
			Check:       DeclaresProfile(mq.ModuleMedikation),
		},
		{
			ID: "profile-unambiguous", Category: mq.CategoryProfile,
			Severity:    mq.SeverityWarning,
			Description: "declared MII profiles belong to a single module",
			Check:       checkProfileUnambiguous,
		},
		{
			ID: "profile-type-match", Category: mq.CategoryProfile,
			Severity:    mq.SeverityWarning,
			Description: "declared MII profiles fit the module of the resource type",
			Check:       checkProfileTypeMatch,
		},

		// Person
		{
			ID: "person-identifier", Category: mq.CategoryRequired, Modules: person, Kinds: patientKind,
			Severity:    mq.SeverityError,
			Description: "Patient.identifier is present",
			Check:       RequireField("identifier"),
		},
		{
			ID: "person-name", Category: mq.CategoryRequired, Modules: person, Kinds: patientKind,
			Severity:    mq.SeverityError,
			Description: "Patient.name is present",
			Check:       RequireField("name"),
		},
		{
			ID: "person-gender", Category: mq.CategoryRequired, Modules: person, Kinds: patientKind,
			Severity:    mq.SeverityError,
			Description: "Patient.gender is present",
			Check:       RequireField("gender"),
		},
		{
			ID: "person-birthdate", Category: mq.CategoryRequired, Modules: person, Kinds: patientKind,
			Severity:    mq.SeverityError,
			Description: "Patient.birthDate is present",
			Check:       RequireField("birthDate"),
		},
		{
			ID: "person-gender-code", Category: mq.CategoryFormat, Modules: person, Kinds: patientKind,
			Severity:    mq.SeverityError,
			Description: "Patient.gender is male, female, other or unknown",
			Check:       CodeIn("gender", "male", "female", "other", "unknown"),
		},
		{
			ID: "person-birthdate-format", Category: mq.CategoryFormat, Modules: person, Kinds: patientKind,
			Severity:    mq.SeverityError,
			Description: "Patient.birthDate is a valid FHIR date",
			Check:       FieldFormat("birthDate", "date", ValidDate),
		},
		{
			ID: "person-postal-code", Category: mq.CategoryFormat, Modules: person, Kinds: patientKind,
			Severity:    mq.SeverityWarning,
			Description: "German addresses carry a five digit postal code",
			Check:       checkPostalCodes,
		},

		// Fall
		{
			ID: "fall-status", Category: mq.CategoryRequired, Modules: fall, Kinds: encounterKind,
			Severity:    mq.SeverityError,
			Description: "Encounter.status is present",
			Check:       RequireField("status"),
		},
		{
			ID: "fall-class", Category: mq.CategoryRequired, Modules: fall, Kinds: encounterKind,
			Severity:    mq.SeverityError,
			Description: "Encounter.class is present",
			Check:       RequireField("class"),
		},
		{
			ID: "fall-subject", Category: mq.CategoryRequired, Modules: fall, Kinds: encounterKind,
			Severity:    mq.SeverityError,
			Description: "Encounter.subject is present",
			Check:       RequireField("subject"),
		},
		{
			ID: "fall-period-start-format", Category: mq.CategoryFormat, Modules: fall, Kinds: encounterKind,
			Severity:    mq.SeverityError,
			Description: "Encounter.period.start is a valid FHIR dateTime",
			Check:       FieldFormat("period.start", "dateTime", ValidDateTime),
		},
		{
			ID: "fall-period-end-format", Category: mq.CategoryFormat, Modules: fall, Kinds: encounterKind,
			Severity:    mq.SeverityError,
			Description: "Encounter.period.end is a valid FHIR dateTime",
			Check:       FieldFormat("period.end", "dateTime", ValidDateTime),
		},
		{
			ID: "fall-period-order", Category: mq.CategoryFormat, Modules: fall, Kinds: encounterKind,
			Severity:    mq.SeverityError,
			Description: "Encounter.period.end is not before period.start",
			Check:       checkPeriodOrder,
		},

		// Diagnose
		{
			ID: "diagnose-code", Category: mq.CategoryRequired, Modules: diagnose, Kinds: conditionKind,
			Severity:    mq.SeverityError,
			Description: "Condition.code is present",
			Check:       RequireField("code"),
		},
		{
			ID: "diagnose-subject", Category: mq.CategoryRequired, Modules: diagnose, Kinds: conditionKind,
			Severity:    mq.SeverityError,
			Description: "Condition.subject is present",
			Check:       RequireField("subject"),
		},
		{
			ID: "diagnose-icd10gm-format", Category: mq.CategoryTerminology, Modules: diagnose, Kinds: conditionKind,
			Severity:    mq.SeverityError,
			Description: "ICD-10-GM codes match the ICD-10-GM code shape",
			Check:       checkICDFormat,
		},
		{
			ID: "diagnose-icd10gm-version", Category: mq.CategoryTerminology, Modules: diagnose, Kinds: conditionKind,
			Severity:    mq.SeverityInformation,
			Description: "ICD-10-GM codings state the catalog version",
			Check:       checkICDVersion,
		},
		{
			ID: "diagnose-icd10gm-known", Category: mq.CategoryTerminology, Modules: diagnose, Kinds: conditionKind,
			Severity:    mq.SeverityError,
			Description: "ICD-10-GM codes are defined in the loaded code system",
			Check:       checkICDKnown,
		},
		{
			ID: "diagnose-recorded-date-format", Category: mq.CategoryFormat, Modules: diagnose, Kinds: conditionKind,
			Severity:    mq.SeverityError,
			Description: "Condition.recordedDate and onsetDateTime are valid FHIR dateTimes",
			Check:       FieldsFormat("dateTime", ValidDateTime, "recordedDate", "onsetDateTime"),
		},

		// Medikation
		{
			ID: "medikation-code", Category: mq.CategoryRequired, Modules: medikation, Kinds: medicationKind,
			Severity:    mq.SeverityWarning,
			Description: "Medication.code is present",
			Check:       RequireField("code"),
		},
		{
			ID: "medikation-status", Category: mq.CategoryRequired, Modules: medikation, Kinds: medicationUsage,
			Severity:    mq.SeverityError,
			Description: "status is present",
			Check:       RequireField("status"),
		},
		{
			ID: "medikation-subject", Category: mq.CategoryRequired, Modules: medikation, Kinds: medicationUsage,
			Severity:    mq.SeverityError,
			Description: "subject is present",
			Check:       RequireField("subject"),
		},
		{
			ID: "medikation-medication", Category: mq.CategoryRequired, Modules: medikation, Kinds: medicationUsage,
			Severity:    mq.SeverityError,
			Description: "medicationCodeableConcept or medicationReference is present",
			Check:       RequireOneOf("medication[x]", "medicationCodeableConcept", "medicationReference"),
		},
		{
			ID: "medikation-effective-format", Category: mq.CategoryFormat, Modules: medikation, Kinds: medicationUsage,
			Severity:    mq.SeverityError,
			Description: "effectiveDateTime and authoredOn are valid FHIR dateTimes",
			Check:       FieldsFormat("dateTime", ValidDateTime, "effectiveDateTime", "authoredOn"),
		},

		// References
		{
			ID: "reference-patient", Category: mq.CategoryReference,
			Severity:    mq.SeverityError,
			Description: "subject and patient references resolve to a Patient in the bundle",
			Check:       checkPatientReferences,
		},
	}
}

// Default returns a catalog of the built-in rules.
func Default() *Catalog {
	c, err := NewCatalog(DefaultRules()...)
	if err != nil {
		// The built-in table is fixed; a failure here is a programming error
		panic(err)
	}
	return c
}
