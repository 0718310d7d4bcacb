package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/soyeahso/wabot/internal/config"
	"github.com/soyeahso/wabot/internal/gateway"
	"github.com/soyeahso/wabot/internal/version"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show wabot status and configuration summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("Wabot %s (commit %s)\n\n", version.Version, version.Commit)

			fmt.Printf("Config:  %s\n", paths.Config)
			fmt.Printf("Data:    %s\n", paths.Data)
			fmt.Printf("Logs:    %s\n", paths.Logs)
			fmt.Println()

			cfg, err := config.Load(paths.Config)
			if err != nil {
				if os.IsNotExist(err) {
					fmt.Println("Config:  not found (using defaults)")
				} else {
					fmt.Printf("Config:  error loading: %v\n", err)
				}
				return nil
			}

			fmt.Printf("Owner:   %s (+%s)\n", cfg.Owner.Name, cfg.Owner.Number)
			fmt.Printf("LLM:     model=%s\n", cfg.LLM.Model)
			fmt.Printf("Bridge:  %s\n", cfg.Transport.BridgeURL)
			fmt.Printf("Gateway: port=%d bind=%s\n", cfg.Gateway.Port, cfg.Gateway.Bind)
			fmt.Printf("Archive: %s\n", cfg.History.Archive)

			// Ask the running instance, if any.
			client := &http.Client{Timeout: 5 * time.Second}
			resp, err := apiGet(client, cfg, "/api/status")
			if err != nil {
				fmt.Println("\nSession: (bot not running)")
			} else {
				defer resp.Body.Close()
				var st gateway.StatusResponse
				if err := json.NewDecoder(resp.Body).Decode(&st); err == nil {
					mode := "silent"
					if st.Active {
						mode = "active"
					}
					fmt.Printf("\nSession: phase=%s connected=%v mode=%s", st.Phase, st.Connected, mode)
					if st.PhoneNumber != nil {
						fmt.Printf(" number=+%s", *st.PhoneNumber)
					}
					fmt.Println()
				}
			}

			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				fmt.Printf("\nValidation issues (%d):\n", len(issues))
				for _, issue := range issues {
					fmt.Printf("  - %s: %s\n", issue.Path, issue.Message)
				}
			}

			return nil
		},
	}

	return cmd
}
