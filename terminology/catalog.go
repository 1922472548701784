package terminology

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/gofhir/fhir/r4"
)

// LoadStats contains statistics about a catalog load.
type LoadStats struct {
	CodeSystemsLoaded int
	CodesLoaded       int
	Errors            int
}

// Catalog stores CodeSystems by canonical URL. It is safe for concurrent
// use once loaded.
type Catalog struct {
	mu          sync.RWMutex
	codeSystems map[string]*codeSystemData
}

type codeSystemData struct {
	url     string
	version string
	codes   map[string]string // code -> display
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		codeSystems: make(map[string]*codeSystemData),
	}
}

// LoadFile loads CodeSystems from a JSON file holding either a single
// CodeSystem or a Bundle of them.
func (c *Catalog) LoadFile(path string) (*LoadStats, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is supplied by the caller
	if err != nil {
		return nil, fmt.Errorf("failed to read terminology file: %w", err)
	}
	stats, err := c.LoadJSON(data)
	if err != nil {
		return stats, fmt.Errorf("%s: %w", path, err)
	}
	return stats, nil
}

// LoadJSON loads a CodeSystem or a Bundle of CodeSystems.
// Bundle entries of other resource types are skipped.
func (c *Catalog) LoadJSON(data []byte) (*LoadStats, error) {
	var probe struct {
		ResourceType string `json:"resourceType"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	stats := &LoadStats{}
	switch probe.ResourceType {
	case "CodeSystem":
		var cs r4.CodeSystem
		if err := json.Unmarshal(data, &cs); err != nil {
			return nil, fmt.Errorf("failed to parse CodeSystem: %w", err)
		}
		n, err := c.LoadCodeSystem(&cs)
		if err != nil {
			stats.Errors++
			return stats, err
		}
		stats.CodeSystemsLoaded++
		stats.CodesLoaded += n

	case "Bundle":
		var b struct {
			Entry []struct {
				Resource json.RawMessage `json:"resource"`
			} `json:"entry"`
		}
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, fmt.Errorf("failed to parse Bundle: %w", err)
		}
		for _, entry := range b.Entry {
			if entry.Resource == nil {
				continue
			}
			if err := json.Unmarshal(entry.Resource, &probe); err != nil || probe.ResourceType != "CodeSystem" {
				continue
			}
			var cs r4.CodeSystem
			if err := json.Unmarshal(entry.Resource, &cs); err != nil {
				stats.Errors++
				continue
			}
			n, err := c.LoadCodeSystem(&cs)
			if err != nil {
				stats.Errors++
				continue
			}
			stats.CodeSystemsLoaded++
			stats.CodesLoaded += n
		}
		if stats.CodeSystemsLoaded == 0 {
			return stats, errors.New("bundle contains no usable CodeSystem")
		}

	default:
		return nil, fmt.Errorf("unsupported resourceType: %q", probe.ResourceType)
	}

	return stats, nil
}

// LoadCodeSystem adds an R4 CodeSystem, replacing any previous one with the
// same URL. It returns the number of codes loaded.
func (c *Catalog) LoadCodeSystem(cs *r4.CodeSystem) (int, error) {
	if cs == nil || cs.Url == nil || *cs.Url == "" {
		return 0, errors.New("codesystem is nil or has no URL")
	}

	csData := &codeSystemData{
		url:   *cs.Url,
		codes: make(map[string]string),
	}
	if cs.Version != nil {
		csData.version = *cs.Version
	}
	extractCodes(cs.Concept, csData)

	c.mu.Lock()
	c.codeSystems[csData.url] = csData
	c.mu.Unlock()

	return len(csData.codes), nil
}

// AddCodes adds a simple code system from a code -> display map.
func (c *Catalog) AddCodes(url string, codes map[string]string) {
	csData := &codeSystemData{
		url:   url,
		codes: make(map[string]string, len(codes)),
	}
	for code, display := range codes {
		csData.codes[code] = display
	}

	c.mu.Lock()
	c.codeSystems[url] = csData
	c.mu.Unlock()
}

func extractCodes(concepts []r4.CodeSystemConcept, csData *codeSystemData) {
	for i := range concepts {
		concept := &concepts[i]
		if concept.Code != nil {
			display := ""
			if concept.Display != nil {
				display = *concept.Display
			}
			csData.codes[*concept.Code] = display
		}

		// ICD-10-GM nests codes by chapter, group and category
		if len(concept.Concept) > 0 {
			extractCodes(concept.Concept, csData)
		}
	}
}

// Contains reports whether code is defined by the code system. loaded is
// false when no code system with that URL has been loaded, in which case
// known is always false.
func (c *Catalog) Contains(system, code string) (known, loaded bool) {
	c.mu.RLock()
	csData, ok := c.codeSystems[stripVersion(system)]
	c.mu.RUnlock()
	if !ok {
		return false, false
	}
	_, known = csData.codes[code]
	return known, true
}

// Display returns the display text of a code, if loaded.
func (c *Catalog) Display(system, code string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	csData, ok := c.codeSystems[stripVersion(system)]
	if !ok {
		return "", false
	}
	display, ok := csData.codes[code]
	return display, ok
}

// Has reports whether a code system with the given URL is loaded.
func (c *Catalog) Has(system string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.codeSystems[stripVersion(system)]
	return ok
}

// Version returns the version of a loaded code system.
func (c *Catalog) Version(system string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if csData, ok := c.codeSystems[stripVersion(system)]; ok {
		return csData.version
	}
	return ""
}

// Systems returns the loaded code system URLs, sorted.
func (c *Catalog) Systems() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	urls := make([]string, 0, len(c.codeSystems))
	for url := range c.codeSystems {
		urls = append(urls, url)
	}
	sort.Strings(urls)
	return urls
}

// Len returns the number of loaded code systems.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.codeSystems)
}

// stripVersion removes the version suffix from a canonical URL.
// FHIR uses the format "url|version".
func stripVersion(url string) string {
	if idx := strings.LastIndex(url, "|"); idx != -1 {
		return url[:idx]
	}
	return url
}
