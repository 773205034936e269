package dashboard

import "time"

type Group struct {
	ID   int64  `json:"id"`
	UUID string `json:"uuid"`
	Name string `json:"name"`
}

type Dashboard struct {
	ID   int64  `json:"id"`
	UUID string `json:"uuid"`
	Name string `json:"name"`
}

// GroupDashboard assigns a dashboard to a permission group. A group has at
// most one primary and one secondary dashboard among its non-voided rows.
type GroupDashboard struct {
	ID                 int64     `json:"id"`
	UUID               string    `json:"uuid"`
	GroupID            int64     `json:"groupId"`
	DashboardID        int64     `json:"dashboardId"`
	DashboardName      string    `json:"dashboardName,omitempty"`
	PrimaryDashboard   bool      `json:"primaryDashboard"`
	SecondaryDashboard bool      `json:"secondaryDashboard"`
	Voided             bool      `json:"voided"`
	OrganisationID     int64     `json:"organisationId"`
	LastModifiedByID   int64     `json:"-"`
	LastModifiedAt     time.Time `json:"lastModifiedDateTime"`
}

// Contract is the interactive form, referring to group and dashboard by id.
type Contract struct {
	ID                 int64  `json:"id,omitempty"`
	UUID               string `json:"uuid,omitempty"`
	GroupID            int64  `json:"groupId" validate:"required"`
	DashboardID        int64  `json:"dashboardId" validate:"required"`
	PrimaryDashboard   bool   `json:"primaryDashboard"`
	SecondaryDashboard bool   `json:"secondaryDashboard"`
}

// BundleContract is the exported form, referring to group and dashboard by uuid.
type BundleContract struct {
	UUID               string `json:"uuid" yaml:"uuid" validate:"required"`
	GroupUUID          string `json:"groupUUID" yaml:"groupUUID" validate:"required"`
	DashboardUUID      string `json:"dashboardUUID" yaml:"dashboardUUID" validate:"required"`
	PrimaryDashboard   bool   `json:"primaryDashboard" yaml:"primaryDashboard"`
	SecondaryDashboard bool   `json:"secondaryDashboard" yaml:"secondaryDashboard"`
	Voided             bool   `json:"voided" yaml:"voided"`
}

// demote clears the primary and/or secondary flag on others and returns the
// rows that changed.
func demote(others []*GroupDashboard, primary, secondary bool) []*GroupDashboard {
	var changed []*GroupDashboard
	for _, o := range others {
		dirty := false
		if primary && o.PrimaryDashboard {
			o.PrimaryDashboard = false
			dirty = true
		}
		if secondary && o.SecondaryDashboard {
			o.SecondaryDashboard = false
			dirty = true
		}
		if dirty {
			changed = append(changed, o)
		}
	}
	return changed
}
