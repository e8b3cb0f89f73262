package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ConfigFileName 用户配置文件名，位于数据目录下
const ConfigFileName = "config.yaml"

// applyFileOverrides 从 ~/.memtier/config.yaml 叠加用户配置
// 文件不存在是正常情况；解析失败时忽略并保留默认值
func applyFileOverrides(cfg *Config) {
	path := filepath.Join(GetDataDir(), ConfigFileName)

	data, err := os.ReadFile(path)
	if err != nil {
		return
	}

	// 直接反序列化到现有结构，未出现的字段保持默认值
	_ = yaml.Unmarshal(data, cfg)
}

// LoadFromFile 从指定路径加载配置（测试和诊断工具使用）
func LoadFromFile(path string) (*Config, error) {
	cfg := NewConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
