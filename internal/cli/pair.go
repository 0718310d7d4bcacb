package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/skip2/go-qrcode"
	"github.com/spf13/cobra"

	"github.com/soyeahso/wabot/internal/config"
	"github.com/soyeahso/wabot/internal/gateway"
)

func newPairCmd() *cobra.Command {
	var (
		number string
		showQR bool
	)

	cmd := &cobra.Command{
		Use:   "pair",
		Short: "Request a pairing code from the running bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			if number == "" {
				return fmt.Errorf("--number is required")
			}

			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}

			body, err := json.Marshal(map[string]string{"phoneNumber": number})
			if err != nil {
				return err
			}

			client := &http.Client{Timeout: 45 * time.Second}
			resp, err := apiPost(client, cfg, "/api/generate-pair", body)
			if err != nil {
				return fmt.Errorf("is the bot running? %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				var apiErr struct {
					Error string `json:"error"`
				}
				json.NewDecoder(resp.Body).Decode(&apiErr)
				return fmt.Errorf("pairing failed: %s", apiErr.Error)
			}

			var pair gateway.PairResponse
			if err := json.NewDecoder(resp.Body).Decode(&pair); err != nil {
				return fmt.Errorf("decoding response: %w", err)
			}

			fmt.Printf("Pairing code for +%s: %s\n", pair.PhoneNumber, pair.PairCode)
			fmt.Println("Enter this code on the phone under Linked Devices, Link with phone number.")

			if showQR {
				qr, err := qrcode.New(pair.PairCode, qrcode.Medium)
				if err != nil {
					return fmt.Errorf("rendering QR code: %w", err)
				}
				fmt.Println(qr.ToSmallString(false))
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&number, "number", "", "phone number to pair, e.g. +27847826044")
	cmd.Flags().BoolVar(&showQR, "qr", false, "also render the code as a terminal QR")

	return cmd
}

// apiBaseURL computes the control API address for client commands.
func apiBaseURL(cfg config.Config) string {
	port := cfg.Gateway.Port
	if port == 0 {
		port = 3001
	}
	host := "127.0.0.1"
	if cfg.Gateway.Bind == "custom" && cfg.Gateway.CustomBindHost != "" {
		host = cfg.Gateway.CustomBindHost
	}
	return fmt.Sprintf("http://%s:%d", host, port)
}

func apiPost(client *http.Client, cfg config.Config, path string, body []byte) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodPost, apiBaseURL(cfg)+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if cfg.Gateway.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.Gateway.AuthToken)
	}
	return client.Do(req)
}

func apiGet(client *http.Client, cfg config.Config, path string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, apiBaseURL(cfg)+path, nil)
	if err != nil {
		return nil, err
	}
	if cfg.Gateway.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.Gateway.AuthToken)
	}
	return client.Do(req)
}
