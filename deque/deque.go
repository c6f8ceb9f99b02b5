/**
 *
 * 模拟结果的历史队列
 * 每个元素为一个时间步的全部观测量；队列满时从头部淘汰最旧的结果
 *
 */

package deque

import "flownet/model"

type Deque interface {
	// 队列的长度
	Size() int

	// 容量
	Capacity() int

	// 正向遍历，0 为最旧
	Traverse(f func(i int, item *model.Snapshot))

	// 在队列结尾增加一个元素，满时先删除头部元素
	AddLast(item model.Snapshot)

	// 在队列头部删除一个元素
	RemoveFirst()

	// 清空
	Clear()

	IsFull() bool

	IsEmpty() bool
}
