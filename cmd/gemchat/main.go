package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/gemchat/gemchat-go/internal/chat"
	"github.com/gemchat/gemchat-go/internal/config"
	"github.com/gemchat/gemchat-go/internal/llm"
	"github.com/gemchat/gemchat-go/internal/logger"
	"github.com/gemchat/gemchat-go/internal/reconcile"
	"github.com/gemchat/gemchat-go/internal/server"
	"github.com/gemchat/gemchat-go/internal/store"
	"github.com/gemchat/gemchat-go/internal/stream"
	"github.com/gemchat/gemchat-go/internal/turn"
)

var rootCmd = &cobra.Command{
	Use:   "gemchat",
	Short: "Session-backed streaming chat service for a search-grounded model API",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP chat service",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, st, runner, err := bootstrap()
		if err != nil {
			return err
		}
		defer st.Close()

		srv := server.New(st, runner)
		addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
		logger.L.Info("starting server", "address", addr)
		return http.ListenAndServe(addr, srv.Handler())
	},
}

var askCmd = &cobra.Command{
	Use:   "ask [text]",
	Short: "Send one turn in a fresh session and print the reply",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, st, runner, err := bootstrap()
		if err != nil {
			return err
		}
		defer st.Close()

		sess := runner.NewChat()
		reply, err := runner.Send(cmd.Context(), sess.ID, []chat.Part{chat.TextPart(args[0])})
		if err != nil {
			return err
		}
		fmt.Println(reply.Text())
		for _, src := range reply.Sources {
			fmt.Printf("  [%s] %s\n", src.Title, src.URI)
		}
		return nil
	},
}

func bootstrap() (*config.Config, *store.Store, *turn.Runner, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.SetLevel(cfg.LogLevel)

	st := store.Open(cfg.Storage.Path)
	agg := stream.New(llm.NewClient(cfg.LLM), cfg.LLM.SystemPrompt)
	rec := reconcile.New(st, cfg.Chat.TitleMaxLen)
	runner := turn.NewRunner(st, rec, agg, cfg.Chat)
	return cfg, st, runner, nil
}

func main() {
	rootCmd.AddCommand(serveCmd, askCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
