package catalog

// Reference data consumed as given: a geographic hierarchy, a judicial-office
// list keyed by city, and the jurisdiction/process-type taxonomy. Entries are
// immutable once loaded and shared read-only across form sessions.

// Department is a first-level administrative division with its cities.
type Department struct {
	Name   string   `json:"name"`
	Cities []string `json:"cities"`
}

// JudicialOffice is a court office (despacho) associated with one city.
type JudicialOffice struct {
	Code string `json:"code"`
	Name string `json:"name"`
	City string `json:"city"`
}

// ProcessType belongs to exactly one jurisdiction.
type ProcessType struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// Jurisdiction groups the process types legal under it.
type Jurisdiction struct {
	Key          string        `json:"key"`
	Name         string        `json:"name"`
	ProcessTypes []ProcessType `json:"process_types"`
}

// Data is the raw shape a Source returns.
type Data struct {
	Departments   []Department     `json:"departments"`
	Offices       []JudicialOffice `json:"offices"`
	Jurisdictions []Jurisdiction   `json:"jurisdictions"`
}

// Catalog indexes Data for normalized-name lookups. Geography is matched by
// normalized-name equality, jurisdictions by exact key.
type Catalog struct {
	data          Data
	deptByName    map[string]Department
	officesByCity map[string][]JudicialOffice
	jurisByKey    map[string]Jurisdiction
}

// New builds the lookup indexes over raw data.
func New(data Data) *Catalog {
	c := &Catalog{
		data:          data,
		deptByName:    make(map[string]Department, len(data.Departments)),
		officesByCity: make(map[string][]JudicialOffice),
		jurisByKey:    make(map[string]Jurisdiction, len(data.Jurisdictions)),
	}
	for _, d := range data.Departments {
		c.deptByName[Normalize(d.Name)] = d
	}
	for _, o := range data.Offices {
		key := Normalize(o.City)
		c.officesByCity[key] = append(c.officesByCity[key], o)
	}
	for _, j := range data.Jurisdictions {
		c.jurisByKey[j.Key] = j
	}
	return c
}

// Department looks up a department by normalized name.
func (c *Catalog) Department(name string) (Department, bool) {
	d, ok := c.deptByName[Normalize(name)]
	return d, ok
}

// Cities returns the city list of a department, or false when the department
// is not in the catalog.
func (c *Catalog) Cities(department string) ([]string, bool) {
	d, ok := c.deptByName[Normalize(department)]
	if !ok {
		return nil, false
	}
	return d.Cities, true
}

// HasCity reports whether the department's city list contains an entry that
// normalizes to the given city.
func (c *Catalog) HasCity(department, city string) bool {
	cities, ok := c.Cities(department)
	if !ok {
		return false
	}
	want := Normalize(city)
	for _, name := range cities {
		if Normalize(name) == want {
			return true
		}
	}
	return false
}

// Offices returns the judicial offices associated with a city. An empty slice
// means the city has no constrained office list and the field falls back to
// manual entry.
func (c *Catalog) Offices(city string) []JudicialOffice {
	return c.officesByCity[Normalize(city)]
}

// HasOffice reports whether the city's office list contains the given entry,
// matched by normalized name or exact code.
func (c *Catalog) HasOffice(city, office string) bool {
	want := Normalize(office)
	for _, o := range c.Offices(city) {
		if Normalize(o.Name) == want || o.Code == office {
			return true
		}
	}
	return false
}

// Jurisdiction looks up a jurisdiction by exact key.
func (c *Catalog) Jurisdiction(key string) (Jurisdiction, bool) {
	j, ok := c.jurisByKey[key]
	return j, ok
}

// ProcessTypes returns the process types legal under a jurisdiction key.
func (c *Catalog) ProcessTypes(jurisdiction string) ([]ProcessType, bool) {
	j, ok := c.jurisByKey[jurisdiction]
	if !ok {
		return nil, false
	}
	return j.ProcessTypes, true
}

// HasProcessType reports whether the jurisdiction allows the given process
// type, matched by key or normalized name.
func (c *Catalog) HasProcessType(jurisdiction, processType string) bool {
	types, ok := c.ProcessTypes(jurisdiction)
	if !ok {
		return false
	}
	want := Normalize(processType)
	for _, t := range types {
		if t.Key == processType || Normalize(t.Name) == want {
			return true
		}
	}
	return false
}

// Departments returns all departments in declaration order.
func (c *Catalog) Departments() []Department { return c.data.Departments }

// Jurisdictions returns all jurisdictions in declaration order.
func (c *Catalog) Jurisdictions() []Jurisdiction { return c.data.Jurisdictions }
