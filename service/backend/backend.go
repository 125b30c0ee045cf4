// Package backend builds the HTTP client for the relational backend service.
package backend

import (
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/go-resty/resty/v2"
)

type Config struct {
	Endpoint string `valid:"url,required"`
	Timeout  time.Duration
	Token    string
}

func New(cfg Config) *resty.Client {
	if _, err := govalidator.ValidateStruct(cfg); err != nil {
		panic(err)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	c := resty.New().
		SetBaseURL(cfg.Endpoint).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	if cfg.Token != "" {
		c.SetAuthToken(cfg.Token)
	}

	return c
}
