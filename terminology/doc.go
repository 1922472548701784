// Package terminology checks coded values used by the MII modules.
//
// ICD-10-GM codes are checked for their shape without any external
// service. A Catalog holds CodeSystems loaded from local FHIR R4 JSON
// files and answers membership questions for them:
//
//	cat := terminology.NewCatalog()
//	if _, err := cat.LoadFile("icd10gm-2024.json"); err != nil {
//	    return err
//	}
//	known, loaded := cat.Contains(terminology.ICD10GMSystem, "E10.9")
package terminology
