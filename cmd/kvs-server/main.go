// Command kvs-server opens a store directory and serves the C6 request
// dispatcher over TCP, plus a small read-only admin HTTP surface.
package main

import (
	"flag"
	"log"
	"net"

	"go.uber.org/zap"

	"github.com/mrshabel/kvs/internal/admin"
	"github.com/mrshabel/kvs/internal/config"
	"github.com/mrshabel/kvs/internal/kv"
	"github.com/mrshabel/kvs/internal/server"
)

func main() {
	addr := flag.String("addr", ":4000", "address to listen on for the kv protocol")
	adminAddr := flag.String("admin-addr", ":4001", "address to listen on for the read-only admin HTTP surface")
	dir := flag.String("dir", config.DefaultDataDir, "directory holding the store's segments")
	threshold := flag.Uint64("compaction-threshold-bytes", 0, "stale-byte threshold that triggers compaction (0 = engine default)")
	flag.Parse()

	zapLogger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("setup logger: %v", err)
	}
	defer zapLogger.Sync()
	logger := zapLogger.Sugar()

	engine, err := kv.Open(kv.Config{
		Directory:                *dir,
		CompactionThresholdBytes: *threshold,
		Logger:                   logger,
	})
	if err != nil {
		logger.Fatalw("open engine", "dir", *dir, "error", err)
	}
	defer engine.Close()

	go func() {
		srv := admin.NewHTTPServer(*adminAddr, engine)
		logger.Infow("admin http server listening", "addr", *adminAddr)
		if err := srv.ListenAndServe(); err != nil {
			logger.Errorw("admin http server stopped", "error", err)
		}
	}()

	l, err := net.Listen("tcp", *addr)
	if err != nil {
		logger.Fatalw("listen", "addr", *addr, "error", err)
	}
	logger.Infow("kv server listening", "addr", *addr, "dir", *dir)

	srv := server.New(engine, logger)
	if err := srv.Serve(l); err != nil {
		logger.Fatalw("serve", "error", err)
	}
}
