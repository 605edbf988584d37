package agent

import (
	"github.com/spf13/cobra"

	"github.com/jmx-collector/pkg/config"
)

var defaultCfg = config.NewDefaultConfig()

func initServerFlags(root *cobra.Command) {
	f := root.PersistentFlags()

	f.String("server.addr", defaultCfg.Server.Addr, "-> HTTP listening address (HTTP监听地址)")
	durationFlag(f, "server.read_timeout", defaultCfg.Server.ReadTimeout, "-> Read timeout duration (读取超时时间)")
	durationFlag(f, "server.write_timeout", defaultCfg.Server.WriteTimeout, "-> Write timeout duration (写入超时时间)")
	durationFlag(f, "server.idle_timeout", defaultCfg.Server.IdleTimeout, "-> Idle connection timeout duration (空闲连接超时时间)")
	durationFlag(f, "server.self_monitor_interval", defaultCfg.Server.SelfMonitorInterval, "-> Self monitor collect interval (自监控采集间隔)")
}
