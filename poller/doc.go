/*
包 poller 实现任务轮询状态机：反复查询任务状态，直到状态文档的 stage
属于终止阶段集合，或者发生失败。

# 行为约定

  - Warmup > 0 时，在第一次查询前等待 Warmup。
  - 每次查询失败（传输错误、服务端错误）都会立即终止轮询，不在循环内重试。
  - stage 属于终止集合时返回该次查询的文档本身（唯一的成功出口），成功后不再等待 Interval。
  - stage 缺失时由 MissingStage 策略决定：默认视为“尚未就绪”。
  - 默认无最大次数与截止时间；MaxAttempts / Deadline 为可选扩展。
  - 通过 context 取消，返回 CANCELLED 错误。

同一轮询序列内的查询严格串行；多个序列之间不共享可变状态，可由 Group 并发执行。
*/
package poller
