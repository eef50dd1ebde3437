package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var initForce bool

const starterConfig = `# hooksink endpoint configuration.
# Global values, exposed to every template as {{config.*}}.
config:
  callback_server: "http://localhost:9000"

endpoints:
  # POST /payment answers immediately, then delivers two delayed webhooks.
  /payment:
    method: POST
    description: "Simulated payment provider"
    initial_response:
      status: 202
      body:
        payment_id: "{{uuid}}"
        status: "pending"
        amount: "{{request.body.amount}}"
    sequence:
      - delay: 2
        webhook:
          method: POST
          url: "{{config.callback_server}}/payment-status"
          body:
            payment_id: "{{initial_response.body.payment_id}}"
            status: "processing"
      - delay:
          min: 3
          max: 8
        webhook:
          method: POST
          url: "{{config.callback_server}}/payment-status"
          body:
            payment_id: "{{initial_response.body.payment_id}}"
            status: "{{random_choice('completed', 'failed')}}"

  # A manual-calling endpoint, driven from the web UI (serve --ui).
  /trigger-event:
    method: POST
    type: manual_calling
    description: "Fire a test event by hand"
    form:
      title: "Trigger Event"
      fields:
        - name: event_type
          label: "Event type"
          type: select
          default: "created"
          options:
            - value: created
              label: "Created"
            - value: deleted
              label: "Deleted"
        - name: reference
          label: "Reference"
          type: text
          required: true
    initial_response:
      body:
        received: "{{request.body.event_type}}"
        reference: "{{request.body.reference}}"
`

var initCmd = &cobra.Command{
	Use:   "init [file]",
	Short: "Write a starter endpoint configuration",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "endpoints.yaml"
		if len(args) == 1 {
			path = args[0]
		}

		if _, err := os.Stat(path); err == nil && !initForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}

		if err := os.WriteFile(path, []byte(starterConfig), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		fmt.Printf("Wrote %s. Start the sink with: hooksink serve -f %s\n", path, path)
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing file")
	rootCmd.AddCommand(initCmd)
}
