package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type ServerCfg struct {
	Port string `mapstructure:"port"`
}

type DBCfg struct {
	Path string `mapstructure:"path"`
}

type SourceCfg struct {
	Dir        string `mapstructure:"dir"`
	TimeoutSec int    `mapstructure:"timeoutSec"`
}

// TablesCfg names the six source tables. Defaults match the reporting
// spreadsheet's tab names.
type TablesCfg struct {
	Card               string `mapstructure:"card"`
	NIBSSSettlement    string `mapstructure:"nibssSettlement"`
	ISWSettlement      string `mapstructure:"iswSettlement"`
	ParallexSettlement string `mapstructure:"parallexSettlement"`
	BankUnity          string `mapstructure:"bankUnity"`
	BankParallex       string `mapstructure:"bankParallex"`
}

type MerchantsCfg struct {
	InterswitchUnity string `mapstructure:"interswitchUnity"`
	NIBSSUnity       string `mapstructure:"nibssUnity"`
	NIBSSParallex    string `mapstructure:"nibssParallex"`
}

type ReconCfg struct {
	DaysOffset      int               `mapstructure:"daysOffset"`
	RevenuePolicy   string            `mapstructure:"revenuePolicy"`
	AmbiguityPolicy string            `mapstructure:"ambiguityPolicy"`
	Strategies      map[string]string `mapstructure:"strategies"`
}

type Root struct {
	Server    ServerCfg    `mapstructure:"server"`
	DB        DBCfg        `mapstructure:"db"`
	Source    SourceCfg    `mapstructure:"source"`
	Tables    TablesCfg    `mapstructure:"tables"`
	Merchants MerchantsCfg `mapstructure:"merchants"`
	Recon     ReconCfg     `mapstructure:"recon"`
}

// SourceTimeout returns the bounded timeout applied to each table fetch.
func (r *Root) SourceTimeout() time.Duration {
	return time.Duration(r.Source.TimeoutSec) * time.Second
}

// Load reads config.yaml from the given directory with RECON_* environment
// overrides (RECON_SERVER_PORT, RECON_DB_PATH, ...). A missing file is not
// an error: every key has a default.
func Load(dir string) (*Root, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	v.SetEnvPrefix("RECON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var root Root
	if err := v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &root, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("db.path", "cardrecon.db")
	v.SetDefault("source.dir", "testdata/source")
	v.SetDefault("source.timeoutSec", 30)

	v.SetDefault("tables.card", "CardTransaction")
	v.SetDefault("tables.nibssSettlement", "NIBSS SETT FROM NIBSS")
	v.SetDefault("tables.iswSettlement", "ISW SETT REPORT")
	v.SetDefault("tables.parallexSettlement", "LIBERTYPAY_Pos_Acquired_Detail_")
	v.SetDefault("tables.bankUnity", "BANK STMT UNITY")
	v.SetDefault("tables.bankParallex", "BANK STMT PARALLEX")

	v.SetDefault("merchants.interswitchUnity", "2LBP87654321988")
	v.SetDefault("merchants.nibssUnity", "2215LA525653900")
	v.SetDefault("merchants.nibssParallex", "210000000000000")

	v.SetDefault("recon.daysOffset", 18)
	v.SetDefault("recon.revenuePolicy", "accrual")
	v.SetDefault("recon.ambiguityPolicy", "first_seen")
	v.SetDefault("recon.strategies", map[string]string{})
}
