package tenant

type PolicyResponse struct {
	WorkStrategy    WorkStrategy `json:"work_strategy"`
	RadiusTolerance float64      `json:"radius_tolerance"`
	LateGracePeriod int          `json:"late_grace_period"`
	OfficeLatitude  float64      `json:"office_latitude"`
	OfficeLongitude float64      `json:"office_longitude"`
	OfficeStart     string       `json:"office_start"`
	OfficeEnd       string       `json:"office_end"`
	Timezone        string       `json:"timezone"`
}
