package event

import "github.com/mssola/useragent"

// ParseDeviceContext synthesizes a DeviceContext from a raw User-Agent
// header. An empty header yields a generic desktop context.
func ParseDeviceContext(rawUA string) DeviceContext {
	if rawUA == "" {
		return DeviceContext{
			Type:      "desktop",
			OSName:    "Unknown",
			OSVersion: "0",
		}
	}

	ua := useragent.New(rawUA)
	name, version := ua.Browser()
	osInfo := ua.OSInfo()

	deviceType := "desktop"
	if ua.Mobile() {
		deviceType = "mobile"
	}

	engine, _ := ua.Engine()

	return DeviceContext{
		Type:           deviceType,
		OSName:         osInfo.Name,
		OSVersion:      osInfo.Version,
		BrowserName:    name,
		BrowserVersion: version,
		BrowserEngine:  engine,
		Touch:          ua.Mobile(),
		Bot:            ua.Bot(),
	}
}
