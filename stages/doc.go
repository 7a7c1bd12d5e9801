/*
包 stages 提供任务终止阶段目录：给定任务类型（JobKind）与结果详细级别
（DetailLevel），返回被视为“已完成”的阶段名称集合。

# 概述

服务端的处理流水线由多个阶段组成（格式转换、缩略图生成、动画迁移等），
不同阶段在服务端的完成顺序并不固定，因此终止判断是集合成员检查，
而不是与单一哨兵值比较。

目录在包初始化时构建一次，之后不再修改，可在并发轮询之间无锁共享。

# 核心接口

  - TerminalStages: 按 (kind, detail) 查找终止阶段集合，未知组合返回 CONFIGURATION 错误
  - StageSet      : 不可变的阶段名称集合（Contains / Names / Len）
  - Entries       : 列出目录中所有已定义的组合
*/
package stages
