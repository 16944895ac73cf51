package discovery

import "fmt"

// Selectors locate the controls of the booking flow. Empty fields fall back
// to DefaultSelectors.
type Selectors struct {
	Start           string
	ServiceType     string
	LocationList    string
	LocationItem    string
	LocationName    string // relative to a LocationItem
	Calendar        string
	ValidationError string
	ActiveDay       string
	LoadingOverlay  string
	Back            string
}

// Calendar day cells carry the month (zero-based) and year on the element
// that contains the day link.
const (
	monthAttr = "data-month"
	yearAttr  = "data-year"
)

// DefaultServiceTypeID is the "Driver License Renewal" tile
const DefaultServiceTypeID = "3"

// ServiceTypeSelector selects the service-type tile with the given data-id
func ServiceTypeSelector(id string) string {
	return fmt.Sprintf("div.QflowObjectItem[data-id='%s']", id)
}

// DefaultSelectors matches the NC DMV appointment site markup
func DefaultSelectors() Selectors {
	return Selectors{
		Start:           "#cmdMakeAppt",
		ServiceType:     ServiceTypeSelector(DefaultServiceTypeID),
		LocationList:    ".step-control-content.UnitIdList.QFlowObjectModel.UnitDataControl",
		LocationItem:    ".QflowObjectItem.form-control.ui-selectable.Active-Unit.valid",
		LocationName:    ":scope div > div:first-of-type",
		Calendar:        ".CalendarDateModel.hasDatepicker",
		ValidationError: ".field-validation-error",
		ActiveDay:       ".ui-state-default.ui-state-active",
		LoadingOverlay:  ".blockUI.blockOverlay",
		Back:            "#BackButton",
	}
}

func (s Selectors) withDefaults() Selectors {
	d := DefaultSelectors()
	fill := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	fill(&s.Start, d.Start)
	fill(&s.ServiceType, d.ServiceType)
	fill(&s.LocationList, d.LocationList)
	fill(&s.LocationItem, d.LocationItem)
	fill(&s.LocationName, d.LocationName)
	fill(&s.Calendar, d.Calendar)
	fill(&s.ValidationError, d.ValidationError)
	fill(&s.ActiveDay, d.ActiveDay)
	fill(&s.LoadingOverlay, d.LoadingOverlay)
	fill(&s.Back, d.Back)
	return s
}
