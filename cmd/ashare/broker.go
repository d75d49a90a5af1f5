package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/newthinker/ashare/internal/broker"
	"github.com/newthinker/ashare/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var brokerCmd = &cobra.Command{
	Use:   "broker",
	Short: "Broker operations",
	Long:  `Commands for inspecting the configured broker (status, balance, positions).`,
}

var brokerStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check broker connection status",
	RunE:  runBrokerStatus,
}

var brokerBalanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show account balance",
	RunE:  runBrokerBalance,
}

var brokerPositionsCmd = &cobra.Command{
	Use:   "positions",
	Short: "List current positions",
	RunE:  runBrokerPositions,
}

func init() {
	rootCmd.AddCommand(brokerCmd)
	brokerCmd.AddCommand(brokerStatusCmd)
	brokerCmd.AddCommand(brokerBalanceCmd)
	brokerCmd.AddCommand(brokerPositionsCmd)
}

// withBrokerConnection handles common broker setup and teardown.
func withBrokerConnection(fn func(ctx context.Context, b broker.Broker, log *zap.Logger) error) error {
	log := logger.Must(debug)
	defer log.Sync()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}

	b, err := newBroker(cfg.Trading, log)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := b.Connect(ctx); err != nil {
		return fmt.Errorf("connecting to broker: %w", err)
	}
	defer b.Disconnect()

	return fn(ctx, b, log)
}

func runBrokerStatus(cmd *cobra.Command, args []string) error {
	return withBrokerConnection(func(ctx context.Context, b broker.Broker, log *zap.Logger) error {
		status := "DISCONNECTED"
		if b.IsConnected() {
			status = "CONNECTED"
		}
		fmt.Printf("Broker: %s\n", b.Name())
		fmt.Printf("Status: %s\n", status)
		log.Info("broker status checked", zap.String("broker", b.Name()), zap.Bool("connected", b.IsConnected()))
		return nil
	})
}

func runBrokerBalance(cmd *cobra.Command, args []string) error {
	return withBrokerConnection(func(ctx context.Context, b broker.Broker, log *zap.Logger) error {
		balance, err := b.GetBalance(ctx)
		if err != nil {
			return fmt.Errorf("getting balance: %w", err)
		}

		fmt.Println("Account Balance")
		fmt.Println("---------------")
		fmt.Printf("Currency:     %s\n", balance.Currency)
		fmt.Printf("Cash:         %.2f\n", balance.Cash)
		fmt.Printf("Market value: %.2f\n", balance.MarketValue)
		fmt.Printf("Total value:  %.2f\n", balance.TotalValue)

		log.Info("balance displayed")
		return nil
	})
}

func runBrokerPositions(cmd *cobra.Command, args []string) error {
	return withBrokerConnection(func(ctx context.Context, b broker.Broker, log *zap.Logger) error {
		positions, err := b.GetPositions(ctx)
		if err != nil {
			return fmt.Errorf("getting positions: %w", err)
		}

		if len(positions) == 0 {
			fmt.Println("No positions found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SYMBOL\tQTY\tAVG COST\tPRICE\tMKT VALUE\tP&L\t")
		fmt.Fprintln(w, "------\t---\t--------\t-----\t---------\t---\t")

		for _, p := range positions {
			fmt.Fprintf(w, "%s\t%d\t%.2f\t%.2f\t%.2f\t%+.2f\t\n",
				p.Symbol, p.Quantity, p.AverageCost, p.CurrentPrice, p.MarketValue, p.UnrealizedPL)
		}
		fmt.Fprintf(w, "TOTAL\t\t\t\t\t%+.2f\t\n", broker.TotalUnrealizedPL(positions))
		w.Flush()

		log.Info("positions listed", zap.Int("count", len(positions)))
		return nil
	})
}
