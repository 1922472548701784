package miiquality

// Module is an MII Kerndatensatz module a resource can be classified into.
type Module string

// Known modules. Unclassified covers every resource that matches neither a
// declared MII profile nor the resource-type fallback.
const (
	ModulePerson       Module = "person"
	ModuleFall         Module = "fall"
	ModuleDiagnose     Module = "diagnose"
	ModuleMedikation   Module = "medikation"
	ModuleUnclassified Module = "unclassified"
)

// Modules lists the MII modules in canonical order.
var Modules = []Module{ModulePerson, ModuleFall, ModuleDiagnose, ModuleMedikation}

// String returns the module name.
func (m Module) String() string {
	return string(m)
}

// IsMII returns true for the four MII Kerndatensatz modules.
func (m Module) IsMII() bool {
	switch m {
	case ModulePerson, ModuleFall, ModuleDiagnose, ModuleMedikation:
		return true
	default:
		return false
	}
}

// Canonical returns the path segment that identifies the module inside an
// MII profile canonical URL, e.g. "modul-person".
// Unclassified has no canonical segment.
func (m Module) Canonical() string {
	if !m.IsMII() {
		return ""
	}
	return "modul-" + string(m)
}

// Order returns the position of the module in canonical order.
// Unknown modules sort last.
func (m Module) Order() int {
	for i, mod := range Modules {
		if mod == m {
			return i
		}
	}
	return len(Modules)
}

// ParseModule converts a module name (case-sensitive, with or without the
// "modul-" prefix) to a Module.
func ParseModule(s string) (Module, bool) {
	const prefix = "modul-"
	if len(s) > len(prefix) && s[:len(prefix)] == prefix {
		s = s[len(prefix):]
	}
	switch Module(s) {
	case ModulePerson, ModuleFall, ModuleDiagnose, ModuleMedikation, ModuleUnclassified:
		return Module(s), true
	default:
		return "", false
	}
}
