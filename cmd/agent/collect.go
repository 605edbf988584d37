package agent

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// durationFlag duration 以字符串注册，"60" 按秒、"1m30s" 按 duration 由配置解码钩子统一解析
func durationFlag(f *pflag.FlagSet, name string, value time.Duration, usage string) {
	f.String(name, value.String(), usage)
}

func initCollectFlags(root *cobra.Command) {
	f := root.PersistentFlags()
	collectPrefix := "collect."

	f.String(collectPrefix+"path", defaultCfg.Collect.Path, "-> Directory of endpoint config files | 端点配置目录")
	f.String(collectPrefix+"type", defaultCfg.Collect.Type, "-> Value of the event type field | 事件 type 字段")
	durationFlag(f, collectPrefix+"polling_frequency", defaultCfg.Collect.PollingFrequency, "-> Collection cycle period | 采集周期")
	f.Int(collectPrefix+"nb_thread", defaultCfg.Collect.NbThread, "-> Number of collector workers | worker 数量")
	f.Int(collectPrefix+"queue_size", defaultCfg.Collect.QueueSize, "-> Work queue capacity | 工作队列容量")
	durationFlag(f, collectPrefix+"drain_check", defaultCfg.Collect.DrainCheck, "-> Queue drain check interval | 排空检查间隔")
	durationFlag(f, collectPrefix+"timeout", defaultCfg.Collect.Timeout, "-> Per operation network timeout | 单次网络操作超时")

	f.String(collectPrefix+"jolokia.scheme", defaultCfg.Collect.Jolokia.Scheme, "-> Jolokia scheme [http,https]")
	f.String(collectPrefix+"jolokia.path", defaultCfg.Collect.Jolokia.Path, "-> Jolokia agent base path")
	f.Bool(collectPrefix+"jolokia.insecure_skip_verify", defaultCfg.Collect.Jolokia.InsecureSkipVerify, "-> Skip TLS verification | 跳过证书校验")
}
