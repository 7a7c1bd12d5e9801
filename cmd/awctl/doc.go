/*
awctl 是 Anything World API 的命令行客户端。

使用方法:

	awctl animate ./fox --name fox --wait          # 上传并等待动画完成
	awctl generate text "a red fox" --wait          # 文本生成模型
	awctl generate image ./fox.png --name fox       # 图片生成模型
	awctl status <job-id> --kind animate            # 单次查询任务状态
	awctl wait <job-id>... --kind generate          # 并发等待多个任务
	awctl find fox --by-name                        # 搜索模型
	awctl jobs list --state running                 # 查看本地任务记录
	awctl stages                                    # 打印终止阶段目录
	awctl version

配置来自 --config 指定的 YAML 文件与 AW_* 环境变量，至少需要 AW_API_KEY。
*/
package main
