package agent

import (
	"github.com/spf13/cobra"
)

func initSinkFlags(root *cobra.Command) {
	f := root.PersistentFlags()

	f.StringSlice("sink.outputs", defaultCfg.Sink.Outputs, "-> Event outputs [log,prometheus,jsonl,parquet] | 输出列表")
	f.String("sink.jsonl.path", defaultCfg.Sink.JSONL.Path, "-> JSONL output file | JSONL 输出文件")
	f.String("sink.parquet.path", defaultCfg.Sink.Parquet.Path, "-> Parquet output file | Parquet 输出文件")
}
