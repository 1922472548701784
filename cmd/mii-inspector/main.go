// Command mii-inspector checks FHIR bundles against the quality rules of
// the Medizininformatik-Initiative Kerndatensatz.
//
// Usage:
//
//	mii-inspector inspect bundles/ extra.json
//	mii-inspector inspect --output json --report-dir reports bundles/
//	cat bundle.json | mii-inspector inspect -
//	mii-inspector watch incoming/
//	mii-inspector rules
package main

import "os"

func main() {
	os.Exit(execute(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
