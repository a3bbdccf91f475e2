package tradingprovider

import (
	"github.com/aerucodes/emacross/pkg/errors"
	"github.com/go-playground/validator/v10"
)

// BinanceSinkConfig holds the credentials and endpoint for the Binance order
// sink.
type BinanceSinkConfig struct {
	ApiKey    string `yaml:"api_key" json:"api_key" validate:"required"`
	SecretKey string `yaml:"secret_key" json:"secret_key" validate:"required"`
	// BaseURL overrides the API endpoint. Takes precedence over the testnet
	// flag when set.
	BaseURL string `yaml:"base_url" json:"base_url"`
}

// Validate checks that the credentials are present. Live mode without an API
// key is a configuration error, not a runtime one.
func (c *BinanceSinkConfig) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeMissingAPIKey, "binance sink requires api_key and secret_key", err)
	}

	return nil
}
