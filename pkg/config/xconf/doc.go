// Package xconf 基于 koanf 的配置文件加载器。
//
// 负责文件/字节数据的加载、反序列化和热重载，不做字段校验与默认值注入，
// 这些由使用方（如 xrotate.DailyConfig.Options）完成。
//
// # 支持的格式
//
//   - YAML：.yaml, .yml
//   - JSON：.json
//
// # 用法
//
//	cfg, err := xconf.Load("/etc/xdaylog/config.yaml")
//	var sink xrotate.DailyConfig
//	err = cfg.Unmarshal("sink", &sink)
//
// Unmarshal 允许弱类型转换，数字可以落到字符串字段，反之亦然。
//
// # 热重载
//
// [Config.Watch] 基于 fsnotify 监视配置文件所在目录，变更经防抖后调用
// [Config.Reload]，再把结果交给回调。解析失败时保留旧配置。
// 从字节数据创建的配置不能 Reload 或 Watch（[ErrNotFromFile]）。
package xconf
