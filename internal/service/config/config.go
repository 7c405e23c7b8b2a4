package config

import (
	monitorConfig "github.com/iurnickita/orderwatch/internal/monitor/config"
	notificationConfig "github.com/iurnickita/orderwatch/internal/notification/config"
	orderclientConfig "github.com/iurnickita/orderwatch/internal/orderclient/config"
)

type Config struct {
	OrderClient  orderclientConfig.Config
	Monitor      monitorConfig.Config
	Notification notificationConfig.Config
}
