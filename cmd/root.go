package cmd

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/DeviceTrust/DeviceTrust/internal/options"
	"github.com/DeviceTrust/DeviceTrust/internal/server"
	"github.com/DeviceTrust/DeviceTrust/pkg/dmlog"
	"github.com/judwhite/go-svc"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile    string
	serverOpts = options.NewOptions()
	mode       string
	rootCmd    = &cobra.Command{
		Use:   "devicetrust",
		Short: "DeviceTrust, a device-to-device trust relationship manager.",
		Long:  `DeviceTrust, a device-to-device trust relationship manager. Maintains ACL trust records and keeps peers in sync through relationship-change broadcasts.`,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		Run: func(cmd *cobra.Command, args []string) {
			initServer()
		},
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file")
	rootCmd.PersistentFlags().StringVar(&mode, "mode", "debug", "mode")
}

func initConfig() {
	vp := viper.New()
	if cfgFile != "" {
		vp.SetConfigFile(cfgFile)
		if err := vp.ReadInConfig(); err == nil {
			fmt.Println("Using config file:", vp.ConfigFileUsed())
		}
	}

	vp.SetEnvPrefix("dt")
	vp.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vp.AutomaticEnv()
	// 初始化服务配置
	serverOpts.ConfigureWithViper(vp)
	vp.BindPFlags(rootCmd.Flags())
}

func initServer() {
	logOpts := dmlog.NewOptions()
	logOpts.Level = serverOpts.Logger.Level
	logOpts.LogDir = serverOpts.Logger.Dir
	logOpts.LineNum = serverOpts.Logger.LineNum
	dmlog.Configure(logOpts)

	s := server.New(serverOpts)

	if err := svc.Run(s); err != nil {
		log.Fatal(err)
	}
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
