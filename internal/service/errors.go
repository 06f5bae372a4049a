package service

import "errors"

var (
	ErrInvalidDataset     = errors.New("invalid dataset")
	ErrDashboardsDisabled = errors.New("dashboards are not configured")
)
