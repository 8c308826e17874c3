package cli

import (
	"github.com/spf13/cobra"

	"github.com/forPelevin/subalign/internal/faults"
	"github.com/forPelevin/subalign/internal/logging"
	"github.com/forPelevin/subalign/internal/ports/adapters/rabbitmq"
	"github.com/forPelevin/subalign/internal/worker"
)

func newWorkerCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Serve alignment jobs from RabbitMQ",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := cc.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			q := app.Config.Queue
			if q.AMQPURL == "" {
				return faults.Wrap(faults.ErrConfig, "worker", "queue.amqp_url is required (or set SUBALIGN_AMQP_URL)", nil)
			}
			client, err := rabbitmq.Dial(q.AMQPURL, q.CommandQueue, q.Prefetch)
			if err != nil {
				return err
			}
			defer client.Close()

			w := worker.New(worker.Config{
				LockPath:    app.Config.WorkerLockPath(),
				ResultQueue: q.ResultQueue,
			}, client, client, app.Usecase, logging.NewComponentLogger(app.Logger, "worker"))
			return w.Run(cmd.Context())
		},
	}
}
