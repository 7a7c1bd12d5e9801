// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 server 为 awctl 提供一个可选的本地 HTTP 端点，在长时间等待任务时
暴露 Prometheus 指标与存活检查。

# 核心类型

  - MetricsServer：只服务 /metrics（promhttp）与 /healthz，提供非阻塞
    Start、带超时的 Shutdown 与异步错误通道；关闭后不可重启。
  - Config：监听地址、请求头读取超时、scrape 写超时与关闭超时。

# 主要能力

  - Handler 返回路由本身，可嵌入其他服务或直接用 httptest 测试。
  - 监听 ":0" 时 Addr 返回实际绑定的地址，便于测试。
*/
package server
