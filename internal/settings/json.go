package settings

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
)

type jsonSettings struct {
	Region                *string `json:"region"`
	BucketName            *string `json:"bucketName"`
	StoreType             *string `json:"storeType"`
	S3Endpoint            *string `json:"s3Endpoint"`
	S3UsePathStyle        *bool   `json:"s3UsePathStyle"`
	AccessKeyId           *string `json:"accessKeyId"`
	SecretAccessKey       *string `json:"secretAccessKey"`
	UrlExpiration         *int    `json:"urlExpiration"`
	DefaultGroup          *string `json:"defaultGroup"`
	AdminGroup            *string `json:"adminGroup"`
	UserPoolId            *string `json:"userPoolId"`
	BindAddress           *string `json:"bindAddress"`
	Port                  *int    `json:"port"`
	MonitoringPort        *int    `json:"monitoringPort"`
	MonitoringPortEnabled *bool   `json:"monitoringPortEnabled"`
	JwtSecret             *string `json:"jwtSecret"`
	JwtPublicKeyPath      *string `json:"jwtPublicKeyPath"`
	JwtIssuer             *string `json:"jwtIssuer"`
	JwtAudience           *string `json:"jwtAudience"`
	OtelExporter          *string `json:"otelExporter"`
	OtelEndpoint          *string `json:"otelEndpoint"`
	LogLevel              *string `json:"logLevel"`
}

// loadSettingsFromJson returns nil settings when the file does not exist.
func loadSettingsFromJson(jsonFile string) (*Settings, error) {
	jsonData, err := os.ReadFile(jsonFile)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var js jsonSettings
	err = json.Unmarshal(jsonData, &js)
	if err != nil {
		return nil, err
	}
	return &Settings{
		region:                js.Region,
		bucketName:            js.BucketName,
		storeType:             js.StoreType,
		s3Endpoint:            js.S3Endpoint,
		s3UsePathStyle:        js.S3UsePathStyle,
		accessKeyId:           js.AccessKeyId,
		secretAccessKey:       js.SecretAccessKey,
		urlExpiration:         js.UrlExpiration,
		defaultGroup:          js.DefaultGroup,
		adminGroup:            js.AdminGroup,
		userPoolId:            js.UserPoolId,
		bindAddress:           js.BindAddress,
		port:                  js.Port,
		monitoringPort:        js.MonitoringPort,
		monitoringPortEnabled: js.MonitoringPortEnabled,
		jwtSecret:             js.JwtSecret,
		jwtPublicKeyPath:      js.JwtPublicKeyPath,
		jwtIssuer:             js.JwtIssuer,
		jwtAudience:           js.JwtAudience,
		otelExporter:          js.OtelExporter,
		otelEndpoint:          js.OtelEndpoint,
		logLevel:              js.LogLevel,
	}, nil
}
